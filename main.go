package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"invite-digest/config"
	"invite-digest/services"
	"invite-digest/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// maxRecordBytes begrenzt den Body von /transform; ein Datensatz ist ein einzelnes kleines Objekt
const maxRecordBytes = 1 << 20

var (
	transformsCounter      *prometheus.CounterVec
	ratingSourceCounter    *prometheus.CounterVec
	fieldMapReloadsCounter *prometheus.CounterVec
)

func init() {
	transformsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_transforms_total",
			Help: "Total number of transformed records by nested payload state.",
		},
		[]string{"nested_payload"},
	)
	ratingSourceCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_rating_source_total",
			Help: "Where the rating of a transformed record came from.",
		},
		[]string{"source"},
	)
	fieldMapReloadsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "field_map_reloads_total",
			Help: "Field map reload attempts by result.",
		},
		[]string{"result"},
	)
	prometheus.MustRegister(transformsCounter, ratingSourceCounter, fieldMapReloadsCounter)
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

	source, err := fieldMapSource(cfg)
	if err != nil {
		logging.Fatal("Field map source setup failed", zap.Error(err))
	}
	store := services.NewFieldMapStore(logging, source)
	if source != nil {
		// Startfehler sind nicht fatal, die Default-Map bleibt aktiv
		reloadFieldMap(context.Background(), store)

		cronScheduler := cron.New()
		if _, err := cronScheduler.AddFunc(cfg.FieldMapReloadSchedule, func() {
			reloadFieldMap(context.Background(), store)
		}); err != nil {
			logging.Fatal("Invalid field map reload schedule", zap.String("schedule", cfg.FieldMapReloadSchedule), zap.Error(err))
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
		logging.Info("Field map reload scheduled", zap.String("source", source.Name()), zap.String("schedule", cfg.FieldMapReloadSchedule))
	}

	transformService := services.NewTransformService(logging, store, services.OptionsFromConfig(cfg))
	router := newRouter(cfg, transformService, store, logging)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// fieldMapSource wählt die konfigurierte Quelle; nil bedeutet nur Default-Map.
func fieldMapSource(cfg *config.Config) (storage.Source, error) {
	if cfg.FieldMapFile != "" {
		return storage.NewFileSource(cfg.FieldMapFile), nil
	}
	if cfg.FieldMapURL != "" {
		return storage.NewHTTPSource(cfg.FieldMapURL), nil
	}
	if cfg.FieldMapFromS3() {
		client, err := storage.NewS3Client(cfg)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Source(client, cfg.FieldMapS3Bucket, cfg.FieldMapS3Object), nil
	}
	return nil, nil
}

func reloadFieldMap(ctx context.Context, store *services.FieldMapStore) error {
	err := store.Reload(ctx)
	switch {
	case err == nil:
		fieldMapReloadsCounter.WithLabelValues("ok").Inc()
	case errors.Is(err, services.ErrNoSource):
		fieldMapReloadsCounter.WithLabelValues("no_source").Inc()
	default:
		fieldMapReloadsCounter.WithLabelValues("error").Inc()
	}
	return err
}

func newRouter(cfg *config.Config, transformService *services.TransformService, store *services.FieldMapStore, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/")
	protected.Use(apiKeyAuthMiddleware(cfg))
	setupTransformRoutes(protected, transformService, log)
	setupFieldMapRoutes(protected, store, log)
	return router
}

func setupTransformRoutes(rg *gin.RouterGroup, transformService *services.TransformService, log *zap.Logger) {
	// POST - one platform event in, one flat mapping out
	rg.POST("/transform", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRecordBytes)
		raw, err := c.GetRawData()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Warn("Transform body too large", zap.Int64("limit", tooLarge.Limit))
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
			return
		}
		decoded, err := services.TryNormalizeJSON(raw)
		if err != nil {
			log.Warn("Invalid JSON body for transform", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. A JSON object is required."})
			return
		}
		input, ok := decoded.(map[string]any)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. A JSON object is required."})
			return
		}

		digest, trace := transformService.Transform(c.Request.Context(), input)
		transformsCounter.WithLabelValues(string(trace.Nested)).Inc()
		ratingSourceCounter.WithLabelValues(trace.RatingSource).Inc()

		c.JSON(http.StatusOK, digest.ToMap())
	})
}

func setupFieldMapRoutes(rg *gin.RouterGroup, store *services.FieldMapStore, log *zap.Logger) {
	fm := rg.Group("/field-map")

	fm.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Current())
	})

	// POST - reload from the configured source
	fm.POST("/reload", func(c *gin.Context) {
		err := reloadFieldMap(c.Request.Context(), store)
		if errors.Is(err, services.ErrNoSource) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			log.Error("Manual field map reload failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "field map reload failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "field map reloaded", "fields": len(store.Current().Fields)})
	})
}
