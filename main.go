package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"render-bot/clients/botconfig"
	"render-bot/clients/converter"
	"render-bot/clients/fileservice"
	"render-bot/config"
	"render-bot/models"
	"render-bot/services"
	"render-bot/storage"
)

var (
	rendersTotal   *prometheus.CounterVec
	renderedBytes  prometheus.Counter
	renderDuration prometheus.Histogram
)

func init() {
	rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renders_total",
			Help: "Total number of render attempts, labeled by result.",
		},
		[]string{"result"},
	)
	renderedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rendered_output_bytes_total",
			Help: "Total size of all rendered output files.",
		},
	)
	renderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Wall-clock duration of render attempts.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	prometheus.MustRegister(rendersTotal, renderedBytes, renderDuration)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Clients
	fileClient := fileservice.NewClient(cfg, logging)
	botFileClient := botconfig.NewClient(cfg, logging)
	convClient := converter.NewClient(cfg, logging)

	archive, err := storage.NewArchive(cfg)
	if err != nil {
		logging.Fatal("Archive setup failed", zap.Error(err))
	}
	if archive != nil {
		logging.Info("Output archive enabled", zap.String("bucket", cfg.ArchiveS3Bucket))
	}

	// Setup Services
	registry := services.NewBuiltinRegistry(logging)
	resolver := services.NewTemplateResolver(cfg, logging, botFileClient, registry)
	assets := services.NewAssetProcessor(logging, fileClient)
	authors := services.NewAuthorNormalizer(logging)
	renderService := services.NewRenderService(cfg, logging, fileClient, resolver, assets, authors, convClient, archive)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupRenderRoutes(router, cfg, renderService, logging)
	setupTemplateRoutes(router, resolver, logging)

	logging.Info("Starting render-bot", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      300 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupRenderRoutes(router *gin.Engine, cfg *config.Config, renderService *services.RenderService, log *zap.Logger) {
	rg := router.Group("/render")

	// POST - Rendert ein Manuskript in die angeforderten Ausgabeformate.
	// Das Ergebnis ist immer 200 mit genau einer Message; Fehler stehen
	// im Body, nie im HTTP-Status.
	rg.POST("/", func(c *gin.Context) {
		var req models.RenderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Error("Invalid render request body", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'manuscriptId' field is required."})
			return
		}
		req.Token = c.GetHeader("x-bot-token")

		start := time.Now()
		result := renderService.Render(c.Request.Context(), req)
		renderDuration.Observe(time.Since(start).Seconds())

		if result.Success {
			rendersTotal.WithLabelValues("success").Inc()
			for _, out := range result.Outputs {
				renderedBytes.Add(float64(out.Size))
			}
		} else {
			rendersTotal.WithLabelValues("failure").Inc()
		}
		c.JSON(http.StatusOK, result)
	})
}

func setupTemplateRoutes(router *gin.Engine, resolver *services.TemplateResolver, log *zap.Logger) {
	rg := router.Group("/templates")

	// GET - Listet die eingebauten Templates.
	rg.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"templates": resolver.ListTemplates(models.JournalConfig{})})
	})

	// GET - Liefert die Metadaten eines eingebauten Templates.
	rg.GET("/:name", func(c *gin.Context) {
		name := c.Param("name")
		for _, tmpl := range resolver.ListTemplates(models.JournalConfig{}) {
			if tmpl.Name == name {
				c.JSON(http.StatusOK, tmpl)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found: " + name})
	})

	// POST - Listet die für ein Journal sichtbaren Templates; der Body
	// enthält die Journal-Konfiguration mit den registrierten Templates.
	rg.POST("/list", func(c *gin.Context) {
		var body struct {
			Config models.JournalConfig `json:"config"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			log.Error("Invalid template list request body", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"templates": resolver.ListTemplates(body.Config)})
	})
}
