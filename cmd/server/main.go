package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/safesphere/backend/internal/delivery/http"
	"github.com/safesphere/backend/internal/repository/memory"
	"github.com/safesphere/backend/internal/repository/postgres"
	"github.com/safesphere/backend/internal/service"
)

func main() {
	// Load .env if present; already-set system environment wins
	_ = godotenv.Load()

	// Configuration
	cfg := loadConfig()

	log := newLogger(cfg.Env)
	defer log.Sync()

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("could not connect to database, falling back to in-memory store", zap.Error(err))
		} else {
			pool = p
			defer pool.Close()
			log.Info("connected to PostgreSQL")
		}
	} else {
		log.Info("DATABASE_URL not set, using in-memory store")
	}

	// Dependency Injection: Repositories
	var repo service.IncidentRepository
	if pool != nil {
		repo = postgres.NewPostgresRepository(pool)
	} else {
		repo = memory.NewRepository()
	}

	// Dependency Injection: Services
	ranker := service.NewRanker(cfg.Ranker)
	incidentSvc := service.NewIncidentService(repo, ranker, log)
	seeder := service.NewSeeder(incidentSvc, log)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "SafeSphere API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := http.NewHandler(incidentSvc, seeder, cfg.ZoneStep, log)
	http.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Info("server starting", zap.String("port", port))
		if err := app.Listen(":" + port); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exited gracefully")
}

type Config struct {
	DatabaseURL string
	Port        string
	Env         string
	ZoneStep    float64
	Ranker      service.RankerConfig
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("GO_ENV", "development"),
		ZoneStep:    loadZoneStep(),
		Ranker:      loadRankerConfig(),
	}
}

// loadZoneStep reads the default heatmap grid size. Malformed or
// non-positive values fall back to the built-in default.
func loadZoneStep() float64 {
	if raw := os.Getenv("ZONE_STEP"); raw != "" {
		if step, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && step > 0 {
			return step
		}
	}
	return service.DefaultZoneStep
}

// loadRankerConfig returns the model parameters, letting deployments tune
// the weights and bias without a rebuild. Malformed values fall back to
// the defaults.
func loadRankerConfig() service.RankerConfig {
	cfg := service.DefaultRankerConfig()

	if raw := os.Getenv("RANK_WEIGHTS"); raw != "" {
		parts := strings.Split(raw, ",")
		if len(parts) == service.FeatureCount {
			var weights [service.FeatureCount]float64
			ok := true
			for i, p := range parts {
				w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
				if err != nil {
					ok = false
					break
				}
				weights[i] = w
			}
			if ok {
				cfg.Weights = weights
			}
		}
	}
	if raw := os.Getenv("RANK_BIAS"); raw != "" {
		if b, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			cfg.Bias = b
		}
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newLogger(env string) *zap.Logger {
	if env == "development" {
		log, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return log
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
