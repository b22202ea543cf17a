package web

import (
	"context"
	"net/http"
	"time"

	"context-engine/config"
	"context-engine/ingest"
	"context-engine/retrieval"
	"context-engine/web/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
	config *config.Config
}

func NewServer(engine *retrieval.Engine, ingestor *ingest.Service, extractor *ingest.PDFExtractor, logger *zap.Logger, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = int64(cfg.MaxUploadSizeMB) << 20

	server := &Server{
		router: router,
		logger: logger,
		config: cfg,
	}

	contextHandler := handlers.NewContextHandler(engine, logger, cfg.RetrievalTimeout)
	ingestHandler := handlers.NewIngestHandler(ingestor, extractor, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/context", contextHandler.Retrieve)
		api.POST("/context/preview", contextHandler.Preview)
		api.GET("/cache/stats", contextHandler.CacheStats)
		api.POST("/cache/clear", contextHandler.CacheClear)

		api.POST("/memories", ingestHandler.CreateMemory)
		api.DELETE("/memories", ingestHandler.DeleteMemories)
		api.POST("/messages", ingestHandler.CreateMessage)
		api.DELETE("/messages", ingestHandler.DeleteMessages)
		api.POST("/documents", ingestHandler.CreateDocument)
		api.POST("/documents/upload", ingestHandler.UploadDocument)
		api.GET("/documents", ingestHandler.ListDocuments)
		api.DELETE("/documents/:id", ingestHandler.DeleteDocument)
	}

	return server
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine so shutdown can react to ctx
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
