package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/skyhop/skyhop_core/internal/api"
	"github.com/skyhop/skyhop_core/internal/cache"
	"github.com/skyhop/skyhop_core/internal/config"
	"github.com/skyhop/skyhop_core/internal/db"
	"github.com/skyhop/skyhop_core/internal/fares"
	"github.com/skyhop/skyhop_core/internal/middleware"
	"github.com/skyhop/skyhop_core/internal/schedule"
	"github.com/skyhop/skyhop_core/internal/search"
)

func main() {
	log.Println("Starting SkyHop API server...")

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Database connection established")

	// Initialize Redis connection
	rdb, err := cache.GetClient()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	// Load schedule index into memory
	store := schedule.NewMemoryStore()
	if err := store.LoadFromDB(context.Background(), pool); err != nil {
		log.Fatalf("Failed to load schedule index: %v", err)
	}
	log.Println("✓ Schedule index loaded into memory")

	// Wire the search engine
	searchCfg := config.LoadSearchFromEnv()
	fareCache := cache.NewFareStore(rdb, cache.LoadConfigFromEnv().TTL)
	resolver := search.NewFareResolver(fareCache, fares.NewPGSource(pool), searchCfg)
	engine := search.NewEngine(store, store.Airports(), resolver, searchCfg)

	handlers := &api.Handlers{
		Engine: engine,
		Store:  store,
		Cfg:    searchCfg,
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SkyHop API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(middleware.RateLimitMiddleware(rdb, middleware.DefaultRateLimits()))

	// Routes
	app.Get("/health", handlers.Health)
	app.Post("/v1/search", handlers.Search)
	app.Get("/v1/airports/:code/departures", handlers.Departures)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	// Get port from environment
	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("🔎 Search: POST http://localhost%s/v1/search", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
