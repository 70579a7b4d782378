package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/simresglp/simulator/internal/config"
	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/montecarlo"
)

// Server is the HTTP control surface of the simulator: configuration
// CRUD, single runs and the Monte Carlo experiment lifecycle.
type Server struct {
	router   *gin.Engine
	repo     *database.Repository
	executor *montecarlo.Executor
	settings config.Settings
	log      *logrus.Logger
}

// NewServer builds the router with CORS, request tagging and logging
// already wired.
func NewServer(repo *database.Repository, executor *montecarlo.Executor, settings config.Settings, log *logrus.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID(), requestLogger(log))

	// Configure CORS
	corsCfg := cors.DefaultConfig()
	if settings.AllowAllOrigins() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = settings.CORSOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	server := &Server{
		router:   router,
		repo:     repo,
		executor: executor,
		settings: settings,
		log:      log,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")

	// Configuration endpoints
	api.GET("/configuraciones", s.listConfiguraciones)
	api.GET("/configuraciones/defaults", s.getDefaults)
	api.GET("/configuraciones/:id", s.getConfiguracion)
	api.POST("/configuraciones", s.createConfiguracion)
	api.PUT("/configuraciones/:id", s.updateConfiguracion)
	api.DELETE("/configuraciones/:id", s.deleteConfiguracion)

	// Single-run endpoints
	api.POST("/simulation/run", s.runSimulation)
	api.POST("/simulaciones/execute", s.executeSimulacion)
	api.GET("/simulaciones", s.listSimulaciones)
	api.GET("/simulaciones/:id", s.getSimulacion)
	api.GET("/simulaciones/:id/resultados", s.getResultados)
	api.GET("/simulaciones/:id/series-temporales", s.getSerieTemporal)
	api.DELETE("/simulaciones/:id", s.deleteSimulacion)

	// Monte Carlo endpoints
	mc := api.Group("/monte-carlo")
	mc.POST("/start", s.startExperiment)
	mc.GET("/experiments", s.listExperiments)
	mc.GET("/experiments/:id", s.getExperiment)
	mc.GET("/experiments/:id/progress", s.getExperimentProgress)
	mc.DELETE("/experiments/:id", s.deleteExperiment)
	mc.GET("/experiments/:id/replicas", s.getExperimentReplicas)
	mc.GET("/experiments/:id/anova", s.getExperimentAnova)
	mc.GET("/experiments/:id/series-temporales", s.getExperimentSeries)

	// Health check
	api.GET("/health", s.healthCheck)
}

// Start starts the server
func (s *Server) Start() error {
	s.log.WithField("port", s.settings.Port).Info("http server listening")
	return s.router.Run(":" + s.settings.Port)
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":     config.AppName,
		"version": config.AppVersion,
		"status":  "running",
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// requestID tags every request, honoring an X-Request-ID set upstream.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// requestLogger emits one structured line per handled request.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed_ms": float64(time.Since(start).Microseconds()) / 1000,
		}).Info("request handled")
	}
}

// respondError maps the executor's error taxonomy onto status codes:
// unknown id 404, admission 422, lifecycle-state conflicts 409,
// anything else 500.
func respondError(c *gin.Context, err error) {
	var vErr *montecarlo.ValidationError
	var pErr *montecarlo.PreconditionError
	switch {
	case errors.Is(err, montecarlo.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": vErr.Error()})
	case errors.As(err, &pErr):
		c.JSON(http.StatusConflict, gin.H{"error": pErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// parseID reads the :id path parameter; on garbage it answers 422 and
// reports false.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "id inválido"})
		return 0, false
	}
	return uint(id), true
}

// pagination reads skip/limit with the listing defaults.
func pagination(c *gin.Context) (skip, limit int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	return skip, limit
}
