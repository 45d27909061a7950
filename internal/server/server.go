package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/core"
	"github.com/agenthands/archgraph/internal/core/repair"
	"github.com/agenthands/archgraph/internal/logger"
)

type Server struct {
	Ingestor *core.Ingestor
	Log      *logger.Logger
	cfg      *config.Config
}

func NewServer(ing *core.Ingestor, cfg *config.Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		Ingestor: ing,
		Log:      log.With("service", "HTTP"),
		cfg:      cfg,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = s.cfg.Server.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Content-Type", "Authorization"}
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.Health)
	r.POST("/repair", s.Repair)
	r.POST("/ingest", s.Ingest)
	r.GET("/runs/:run_id", s.RunComponents)
	r.DELETE("/runs/:run_id", s.DeleteRun)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type RepairRequest struct {
	Raw string `json:"raw"`
}

func (s *Server) Repair(c *gin.Context) {
	var req RepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := repair.Repair(req.Raw)
	if err != nil {
		var failure *repair.Failure
		if errors.As(err, &failure) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"reason": failure.Reason, "error": failure.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": res.Value})
}

type IngestRequest struct {
	Text       string `json:"text"`
	ChunkWords int    `json:"chunk_words"`
	Persist    bool   `json:"persist"`
}

func (s *Server) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	g, report, err := s.Ingestor.IngestText(ctx, req.Text, req.ChunkWords)
	if err != nil {
		if errors.Is(err, core.ErrNoChunks) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is empty"})
			return
		}
		s.Log.Error("Ingestion failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	persisted := false
	if req.Persist || s.cfg.Ingest.Persist {
		if err := s.Ingestor.Persist(ctx, report.RunID, g); err != nil {
			if errors.Is(err, core.ErrNoDriver) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
				return
			}
			s.Log.Error("Failed to persist graph", "run_id", report.RunID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist graph"})
			return
		}
		persisted = true
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    report.RunID,
		"graph":     g.Document(),
		"report":    report,
		"persisted": persisted,
	})
}

func (s *Server) RunComponents(c *gin.Context) {
	names, err := s.Ingestor.RunComponents(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("run_id"), "components": names})
}

func (s *Server) DeleteRun(c *gin.Context) {
	if err := s.Ingestor.DeleteRun(c.Request.Context(), c.Param("run_id")); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, core.ErrNoDriver) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}
	s.Log.Error("Graph store query failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Graph store query failed"})
}
