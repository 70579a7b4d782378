package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/metrics"
	"github.com/simresglp/simulator/internal/montecarlo"
	"github.com/simresglp/simulator/pkg/simulation"
)

// runAndPersist executes one simulation synchronously and stores it,
// series included. The record is created up front in the running state so
// a kernel failure still leaves a queryable row.
func (s *Server) runAndPersist(params database.ParamsJSON, configuracionID *uint) (*database.Simulacion, error) {
	seed := montecarlo.BaseSeed(params)
	cfg := montecarlo.ConfigFromParams(params, seed)
	if err := cfg.Validate(); err != nil {
		return nil, &montecarlo.ValidationError{Field: "parametros", Reason: err.Error()}
	}

	sim := &database.Simulacion{
		ConfiguracionID: configuracionID,
		Estado:          database.EstadoRunning,
		SemillaUsada:    seed,
		EjecutadaEn:     time.Now(),
	}
	if err := s.repo.CreateSimulacion(sim); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := simulation.Run(cfg)
	elapsed := time.Since(start).Seconds()
	sim.DuracionSegundos = &elapsed

	if err != nil {
		msg := err.Error()
		sim.Estado = database.EstadoFailed
		sim.ErrorMensaje = &msg
		if uerr := s.repo.UpdateSimulacion(sim); uerr != nil {
			return nil, uerr
		}
		return nil, err
	}

	sim.Estado = database.EstadoCompleted
	sim.SetKpis(res.Kpis)
	sim.SerieTemporal = res.TimeSeries
	if err := s.repo.UpdateSimulacion(sim); err != nil {
		return nil, err
	}

	metrics.SimulationsRun.Inc()
	s.log.WithFields(logrus.Fields{
		"simulacion_id": sim.ID,
		"semilla":       seed,
		"dias":          res.Kpis.SimulatedDays,
	}).Info("simulation run persisted")
	return sim, nil
}

func (s *Server) runSimulation(c *gin.Context) {
	var req ParametrosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	params := req.Params()
	if err := validarParametros(params); err != nil {
		respondError(c, err)
		return
	}

	sim, err := s.runAndPersist(params, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RunResponse{Simulacion: *sim, SerieTemporal: sim.SerieTemporal})
}

func (s *Server) executeSimulacion(c *gin.Context) {
	var req SimulacionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	cfg, err := s.repo.GetConfiguracion(req.ConfiguracionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("Configuración %d no encontrada", req.ConfiguracionID),
		})
		return
	}

	sim, err := s.runAndPersist(cfg.Parametros, &cfg.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SimulacionResponse{Simulacion: *sim, ConfiguracionNombre: &cfg.Nombre})
}

func (s *Server) getSimulacion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	sim, err := s.repo.GetSimulacion(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Simulación %d no encontrada", id)})
		return
	}
	c.JSON(http.StatusOK, s.toSimulacionResponse(sim, nil))
}

func (s *Server) getResultados(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	sim, err := s.repo.GetSimulacion(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Simulación %d no encontrada", id)})
		return
	}
	if sim.Estado != database.EstadoCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Simulación en estado '%s', no hay resultados disponibles", sim.Estado),
		})
		return
	}

	c.JSON(http.StatusOK, buildResultado(sim))
}

func (s *Server) getSerieTemporal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	sim, err := s.repo.GetSimulacion(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Simulación %d no encontrada", id)})
		return
	}
	if sim.Estado != database.EstadoCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Simulación en estado '%s', no hay datos disponibles", sim.Estado),
		})
		return
	}

	serie := sim.SerieTemporal
	if serie == nil {
		serie = database.TimeSeriesJSON{}
	}
	c.JSON(http.StatusOK, gin.H{
		"simulacion_id":     sim.ID,
		"series_temporales": serie,
	})
}

func (s *Server) listSimulaciones(c *gin.Context) {
	skip, limit := pagination(c)

	var configuracionID *uint
	if raw := c.Query("configuracion_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "configuracion_id inválido"})
			return
		}
		u := uint(id)
		configuracionID = &u
	}

	sims, err := s.repo.ListSimulaciones(configuracionID, skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	nombres := map[uint]*string{}
	responses := make([]SimulacionResponse, 0, len(sims))
	for idx := range sims {
		responses = append(responses, s.toSimulacionResponse(&sims[idx], nombres))
	}
	c.JSON(http.StatusOK, responses)
}

func (s *Server) deleteSimulacion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := s.repo.GetSimulacion(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Simulación %d no encontrada", id)})
		return
	}
	if err := s.repo.DeleteSimulacion(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mensaje": "Simulación eliminada"})
}

// toSimulacionResponse attaches the configuration name to a run record.
// The cache avoids refetching the same configuration across a listing;
// pass nil for one-off lookups.
func (s *Server) toSimulacionResponse(sim *database.Simulacion, cache map[uint]*string) SimulacionResponse {
	resp := SimulacionResponse{Simulacion: *sim}
	if sim.ConfiguracionID == nil {
		return resp
	}

	id := *sim.ConfiguracionID
	if cache != nil {
		if nombre, ok := cache[id]; ok {
			resp.ConfiguracionNombre = nombre
			return resp
		}
	}
	var nombre *string
	if cfg, err := s.repo.GetConfiguracion(id); err == nil {
		nombre = &cfg.Nombre
	}
	if cache != nil {
		cache[id] = nombre
	}
	resp.ConfiguracionNombre = nombre
	return resp
}
