package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/montecarlo"
)

func (s *Server) startExperiment(c *gin.Context) {
	var req StartExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	exp, err := s.executor.Start(montecarlo.StartOptions{
		ConfiguracionID: req.ConfiguracionID,
		NumReplicas:     req.NumReplicas,
		MaxWorkers:      req.MaxWorkers,
		Nombre:          req.Nombre,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exp)
}

func (s *Server) listExperiments(c *gin.Context) {
	skip, limit := pagination(c)

	exps, err := s.repo.ListExperimentos(skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, exps)
}

func (s *Server) getExperiment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	exp, err := s.repo.GetExperimento(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Experimento %d no encontrado", id)})
		return
	}
	replicas, err := s.repo.GetReplicas(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if replicas == nil {
		replicas = []database.Replica{}
	}

	c.JSON(http.StatusOK, ExperimentoDetail{Experimento: *exp, Replicas: replicas})
}

func (s *Server) getExperimentProgress(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	progress, err := s.executor.Progress(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) deleteExperiment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	cancelled, err := s.executor.Delete(id)
	if err != nil {
		respondError(c, err)
		return
	}
	mensaje := "Experimento eliminado"
	if cancelled {
		mensaje = "Experimento cancelado"
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": mensaje})
}

func (s *Server) getExperimentReplicas(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	exp, err := s.repo.GetExperimento(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Experimento %d no encontrado", id)})
		return
	}
	if exp.Estado != database.EstadoCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("El experimento debe estar completado. Estado actual: %s", exp.Estado),
		})
		return
	}

	replicas, err := s.repo.GetReplicasByEstado(id, database.EstadoCompleted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rows := make([]ReplicaResumen, 0, len(replicas))
	for idx := range replicas {
		r := &replicas[idx]
		rows = append(rows, ReplicaResumen{
			ReplicaID:                   r.ID,
			NivelServicioPct:            f64(r.NivelServicioPct),
			DiasConQuiebre:              iv(r.DiasConQuiebre),
			InventarioPromedioTM:        f64(r.InventarioPromedioTM),
			AutonomiaPromedioDias:       f64(r.AutonomiaPromedioDias),
			ProbabilidadQuiebreStockPct: f64(r.ProbabilidadQuiebreStockPct),
			DemandaInsatisfechaTM:       f64(r.DemandaInsatisfechaTM),
			DisrupcionesTotales:         iv(r.DisrupcionesTotales),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"experiment_id":     exp.ID,
		"experiment_nombre": exp.Nombre,
		"num_replicas":      len(rows),
		"replicas":          rows,
	})
}

func (s *Server) getExperimentAnova(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := s.executor.Anova(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getExperimentSeries(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	numMuestras := 0 // executor applies the default
	if raw := c.Query("num_muestras"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "num_muestras inválido"})
			return
		}
		numMuestras = n
	}

	result, err := s.executor.TimeSeries(id, numMuestras)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
