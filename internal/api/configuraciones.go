package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/montecarlo"
)

func (s *Server) listConfiguraciones(c *gin.Context) {
	skip, limit := pagination(c)

	cfgs, err := s.repo.ListConfiguraciones(skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfgs)
}

func (s *Server) getDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, montecarlo.DefaultParams())
}

func (s *Server) getConfiguracion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	cfg, err := s.repo.GetConfiguracion(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Configuración %d no encontrada", id)})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) createConfiguracion(c *gin.Context) {
	var req ConfiguracionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	params := req.Params()
	if err := validarParametros(params); err != nil {
		respondError(c, err)
		return
	}

	if _, err := s.repo.GetConfiguracionByNombre(req.Nombre); err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Ya existe una configuración con el nombre '%s'", req.Nombre),
		})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cfg := &database.Configuracion{
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Parametros:  params,
	}
	if err := s.repo.CreateConfiguracion(cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

func (s *Server) updateConfiguracion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ConfiguracionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	cfg, err := s.repo.GetConfiguracion(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Configuración %d no encontrada", id)})
		return
	}

	if req.Nombre != nil && *req.Nombre != cfg.Nombre {
		if _, err := s.repo.GetConfiguracionByNombre(*req.Nombre); err == nil {
			c.JSON(http.StatusConflict, gin.H{
				"error": fmt.Sprintf("Ya existe una configuración con el nombre '%s'", *req.Nombre),
			})
			return
		}
		cfg.Nombre = *req.Nombre
	}
	if req.Descripcion != nil {
		cfg.Descripcion = req.Descripcion
	}
	if req.Parametros != nil {
		params := req.Parametros.Params()
		if err := validarParametros(params); err != nil {
			respondError(c, err)
			return
		}
		cfg.Parametros = params
	}

	if err := s.repo.UpdateConfiguracion(cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) deleteConfiguracion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := s.repo.GetConfiguracion(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Configuración %d no encontrada", id)})
		return
	}
	if err := s.repo.DeleteConfiguracion(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mensaje": "Configuración eliminada"})
}
