package api

import (
	"github.com/gin-gonic/gin"

	"github.com/epicsum/mediasvc/internal/api/handler"
	"github.com/epicsum/mediasvc/internal/api/middleware"
	"github.com/epicsum/mediasvc/internal/logger"
	"github.com/epicsum/mediasvc/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	holder *service.Holder,
	log *logger.Logger,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler(holder)
	mediaHandler := handler.NewMediaHandler(holder)

	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)

	// Media retrieval; the wildcard keeps slashes and "___<n>" suffixes in
	// the free-text description.
	media := r.Group("/epicsum/media")
	{
		media.GET("/image/*description", mediaHandler.GetImage)
		media.GET("/video/*description", mediaHandler.GetVideo)
	}

	return r
}
