package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epicsum/mediasvc/internal/api"
	"github.com/epicsum/mediasvc/internal/api/middleware"
	"github.com/epicsum/mediasvc/internal/artifact"
	"github.com/epicsum/mediasvc/internal/catalog"
	"github.com/epicsum/mediasvc/internal/config"
	"github.com/epicsum/mediasvc/internal/index"
	"github.com/epicsum/mediasvc/internal/lexical"
	"github.com/epicsum/mediasvc/internal/logger"
	"github.com/epicsum/mediasvc/internal/service"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	holder := service.NewHolder()

	// Setup router; the server answers immediately, media requests get 503
	// until the background initialization publishes the resolver.
	router := api.SetupRouter(holder, appLogger, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.Infof("Starting API server: port=%d, mode=%s", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Load artifacts and publish the resolver in the background
	go initialize(context.Background(), cfg, appLogger, holder)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}

// initialize loads the catalog and vector artifacts, builds the resolver, and
// publishes it through the holder. Catalog failures are fatal; vector index
// failures only disable the vector ranking path for the process lifetime.
func initialize(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, holder *service.Holder) {
	ctx = logger.SetComponent(appLogger.WithContext(ctx), "init")
	start := time.Now()

	var s3cfg *artifact.S3Config
	if cfg.Storage.Endpoint != "" {
		s3cfg = &artifact.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Region:    cfg.Storage.Region,
		}
	}
	opener := artifact.NewOpener(s3cfg)

	store := loadCatalog(ctx, opener, cfg.Artifacts.Catalog)
	idx := buildIndex(ctx, opener, cfg, store)

	var embedder service.EmbeddingProvider
	if cfg.Embedding.Enabled {
		embedder = service.NewEmbeddingService(&service.EmbeddingConfig{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})
	}

	resolver := service.NewResolver(store, idx, lexical.NewScorer(store), embedder, appLogger,
		&service.ResolverConfig{MinVectorCandidates: cfg.Search.MinVectorCandidates})
	holder.Set(resolver)

	logger.With(logger.Fields{
		logger.FieldCount:      store.Size(),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Service ready: vector_search=%v", resolver.VectorSearchEnabled())
}

// loadCatalog fetches and parses the catalog artifact. Any failure here is
// fatal: the service cannot answer without a catalog.
func loadCatalog(ctx context.Context, opener *artifact.Opener, ref string) *catalog.Store {
	rc, err := opener.Open(ctx, ref)
	if err != nil {
		logger.Fatal("Failed to open catalog artifact %s: %v", ref, err)
	}
	defer rc.Close()

	store, err := catalog.Load(rc)
	if err != nil {
		logger.Fatal("Failed to load catalog artifact %s: %v", ref, err)
	}

	logger.CtxInfo(ctx, "Catalog loaded: total=%d, ref=%s", store.Size(), ref)
	return store
}

// buildIndex constructs the configured vector index backend. A nil return
// means lexical-only operation; the resolver handles that degradation.
func buildIndex(ctx context.Context, opener *artifact.Opener, cfg *config.Config, store *catalog.Store) index.Index {
	switch cfg.Index.Backend {
	case "qdrant":
		qdrantIdx, err := index.NewQdrantIndex(&index.QdrantConfig{
			Host:            cfg.Index.Qdrant.Host,
			Port:            cfg.Index.Qdrant.Port,
			Collection:      cfg.Index.Qdrant.Collection,
			APIKey:          cfg.Index.Qdrant.APIKey,
			UseTLS:          cfg.Index.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			logger.CtxWarn(ctx, "Qdrant index unavailable, running lexical-only: %v", err)
			return nil
		}
		return qdrantIdx

	default: // memory
		if !cfg.Embedding.Enabled {
			return nil
		}

		rc, err := opener.Open(ctx, cfg.Artifacts.Embeddings)
		if err != nil {
			logger.CtxWarn(ctx, "Failed to open embeddings artifact %s, running lexical-only: %v", cfg.Artifacts.Embeddings, err)
			return nil
		}
		defer rc.Close()

		memIdx, err := index.LoadMemoryIndex(rc, store)
		if err != nil {
			// A present-but-inconsistent artifact is a deployment error,
			// not a degradation case.
			logger.Fatal("Embeddings artifact %s inconsistent with catalog: %v", cfg.Artifacts.Embeddings, err)
		}

		logger.CtxInfo(ctx, "Memory index loaded: vectors=%d, dim=%d", memIdx.Size(), memIdx.Dimension())
		return memIdx
	}
}
