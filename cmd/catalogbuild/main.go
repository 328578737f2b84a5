package main

import (
	"context"
	"flag"

	"github.com/epicsum/mediasvc/internal/artifact"
	"github.com/epicsum/mediasvc/internal/catalog"
	"github.com/epicsum/mediasvc/internal/config"
	"github.com/epicsum/mediasvc/internal/domain"
	"github.com/epicsum/mediasvc/internal/index"
	"github.com/epicsum/mediasvc/internal/logger"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "mediasvc-catalogbuild",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	csvDir := flag.String("csv-dir", "product-images-dataset", "Directory of product image CSV files")
	videoMetadata := flag.String("video-metadata", "video-dataset/metadata.json", "Video metadata JSON file")
	videoBaseURL := flag.String("video-base-url", "", "Base URL for video links (must end in /)")
	output := flag.String("output", "unified_media_database.json", "Output catalog file")
	uploadQdrant := flag.Bool("qdrant", false, "Upload precomputed vectors to the Qdrant collection")
	embeddingsRef := flag.String("embeddings", "", "Embeddings artifact (local path or s3://bucket/key), required with -qdrant")
	configPath := flag.String("config", "", "Path to config file (used for Qdrant and storage settings)")
	flag.Parse()

	if *videoBaseURL == "" {
		appLogger.Fatal("-video-base-url is required")
	}

	images, err := processImages(*csvDir)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to process product images")
	}

	videos, err := processVideos(*videoMetadata, *videoBaseURL)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to process videos")
	}

	records := append(images, videos...)
	if len(records) == 0 {
		appLogger.Fatal("No catalog records produced")
	}

	if err := writeCatalog(records, *output); err != nil {
		appLogger.WithError(err).Fatal("Failed to write catalog")
	}

	appLogger.WithFields(logger.Fields{
		"images": len(images),
		"videos": len(videos),
		"total":  len(records),
		"output": *output,
	}).Info("Catalog written")

	if *uploadQdrant {
		if *embeddingsRef == "" {
			appLogger.Fatal("-embeddings is required with -qdrant")
		}
		if err := uploadVectors(context.Background(), *configPath, *embeddingsRef, records); err != nil {
			appLogger.WithError(err).Fatal("Failed to upload vectors")
		}
	}
}

// uploadVectors pushes the precomputed embedding rows into the Qdrant
// collection so the qdrant index backend can serve them. Point ids are
// deterministic, so re-running overwrites instead of duplicating.
func uploadVectors(ctx context.Context, configPath, embeddingsRef string, records []domain.MediaRecord) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := catalog.NewStore(records)
	if err != nil {
		return err
	}

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

	rc, err := artifact.NewOpener(s3cfg).Open(ctx, embeddingsRef)
	if err != nil {
		return err
	}
	defer rc.Close()

	// Validates the row count against the catalog before any upload.
	memIdx, err := index.LoadMemoryIndex(rc, store)
	if err != nil {
		return err
	}

	qdrantIdx, err := index.NewQdrantIndex(&index.QdrantConfig{
		Host:            cfg.Index.Qdrant.Host,
		Port:            cfg.Index.Qdrant.Port,
		Collection:      cfg.Index.Qdrant.Collection,
		APIKey:          cfg.Index.Qdrant.APIKey,
		UseTLS:          cfg.Index.Qdrant.UseTLS,
		VectorDimension: memIdx.Dimension(),
	})
	if err != nil {
		return err
	}
	defer qdrantIdx.Close()

	if err := qdrantIdx.EnsureCollection(ctx); err != nil {
		return err
	}

	for id, rec := range records {
		err := qdrantIdx.Upsert(ctx, memIdx.Vector(id), &index.RecordPayload{
			RecordID:    id,
			ContentType: string(rec.ContentType),
			Title:       rec.Title,
			Link:        rec.Link,
		})
		if err != nil {
			return err
		}

		if (id+1)%1000 == 0 {
			logger.Info("Uploaded %d/%d vectors", id+1, len(records))
		}
	}

	logger.Info("Uploaded %d vectors to collection %s", len(records), cfg.Index.Qdrant.Collection)
	return nil
}
