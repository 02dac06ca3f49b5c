package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maestro/internal/audio"
	"maestro/internal/config"
	"maestro/internal/database"
	"maestro/internal/handlers"
	"maestro/internal/llm"
	"maestro/internal/logging"
	"maestro/internal/services"
	"maestro/internal/tools"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("✅ Loaded .env file")
	}

	logging.Init()
	cfg := config.Load()

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to open transcript database: %v", err)
	}
	defer db.Close()

	// tool catalog — duplicate registration is a programming error, fail fast
	analyzer := audio.NewService(cfg.AnalyzerURL)
	recordings := tools.NewRecordingCollection()
	catalog := tools.NewCatalog()
	for _, collection := range []tools.Collection{
		tools.NewWidgetCollection(),
		recordings,
		tools.NewAnalysisCollection(analyzer),
		tools.NewMIDICollection(),
	} {
		if err := catalog.Register(collection); err != nil {
			log.Fatalf("❌ Tool registration failed: %v", err)
		}
	}
	log.Printf("🧰 Tool catalog ready: %d tools", catalog.Count())

	if err := llm.ApplyStrategyOverrides(cfg.StrategiesPath); err != nil {
		log.Fatalf("❌ Invalid strategy overrides: %v", err)
	}
	// an unknown explicit format key is a config defect; catch it here, not
	// on the first turn
	if _, err := llm.SelectStrategy(cfg.Model, cfg.ModelFormat); err != nil {
		log.Fatalf("❌ Invalid model format configuration: %v", err)
	}

	backend := llm.NewHTTPBackend()
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	err = backend.Initialize(initCtx, llm.BackendConfig{
		BaseURL:       cfg.BackendBaseURL,
		APIKey:        cfg.BackendAPIKey,
		Model:         cfg.Model,
		ContextWindow: cfg.ContextWindow,
		GPULayers:     cfg.GPULayers,
		Timeout:       cfg.BackendTimeout,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
	})
	cancelInit()
	if err != nil {
		log.Fatalf("❌ Backend initialization failed: %v", err)
	}
	defer backend.Close()

	prompts := services.NewPromptService(cfg.SystemPromptPath)
	defer prompts.Close()
	conversations := services.NewConversationService(prompts)
	metrics := services.NewMetrics(conversations.Count)
	validator := services.NewResponseValidator(cfg)
	chatService := services.NewChatService(cfg, backend, catalog, validator, metrics, db)
	connManager := services.NewConnectionManager()

	sweeper, err := services.NewSessionSweeper(conversations, cfg.SessionTTL, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("❌ Session sweeper setup failed: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "maestro",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	prometheus := fiberprometheus.New("maestro")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	healthHandler := handlers.NewHealthHandler(connManager, conversations)
	sessionHandler := handlers.NewSessionHandler(conversations, db)
	wsHandler := handlers.NewWebSocketHandler(cfg, connManager, conversations, chatService, recordings, analyzer)

	app.Get("/health", healthHandler.Handle)
	app.Get("/sessions/:id/transcript", sessionHandler.Transcript)
	app.Get("/sessions/:id/thinking", sessionHandler.Thinking)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.Handle))

	go func() {
		log.Printf("🚀 Maestro listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	connManager.CloseAll()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️ Shutdown error: %v", err)
	}
	log.Println("👋 Goodbye")
}
