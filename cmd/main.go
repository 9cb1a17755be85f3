package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/internal/builder"
	"github.com/Omni-crm/talpan-bot-sub000/internal/chat"
	"github.com/Omni-crm/talpan-bot-sub000/internal/handler"
	"github.com/Omni-crm/talpan-bot-sub000/internal/recordstore"
	"github.com/Omni-crm/talpan-bot-sub000/internal/repositories"
	"github.com/Omni-crm/talpan-bot-sub000/internal/saga"
	"github.com/Omni-crm/talpan-bot-sub000/internal/service"
	"github.com/Omni-crm/talpan-bot-sub000/internal/session"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/database"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/envconfig"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/flags"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

func main() {
	// Parse command-line flags
	flagConfig := flags.Parse()

	// Validate flag configuration
	if err := flagConfig.Validate(); err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		return
	}

	envErr := envconfig.LoadEnvFile(".env")

	loggerConfig := logger.Config{
		Level:        envconfig.GetLogLevel(),
		Format:       envconfig.GetEnv("LOG_FORMAT", "json"),
		Output:       envconfig.GetEnv("LOG_OUTPUT", "stdout"),
		EnableCaller: envconfig.GetEnv("LOG_ENABLE_CALLER", "true") == "true",
		Environment:  envconfig.GetEnv("ENVIRONMENT", "development"),
	}

	appLogger := logger.New(loggerConfig)

	if envErr != nil {
		appLogger.Warn("Failed to load .env file", "error", envErr)
	} else {
		appLogger.Debug(".env file loaded successfully")
	}

	botConfig := envconfig.LoadBotConfig()
	if flagConfig.ConfigFile != "" {
		overlaid, err := envconfig.ApplyBotConfigFile(botConfig, flagConfig.ConfigFile)
		if err != nil {
			appLogger.Error("Failed to load config file", "path", flagConfig.ConfigFile, "error", err)
			return
		}
		botConfig = overlaid
	}

	appLogger.Info("Starting Talpan courier order bot",
		"environment", loggerConfig.Environment,
		"log_level", loggerConfig.Level,
		"session_timeout", botConfig.SessionTimeout,
		"nav_stack_depth", botConfig.NavStackDepth)

	// Establish database connection
	db, err := database.NewConnection(envconfig.LoadDatabaseConfig(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to establish database connection", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := db.HealthCheck(); err != nil {
		appLogger.Fatal("Database health check failed", "error", err)
	}
	appLogger.Info("Database connection established", "driver", db.Driver())

	store, err := recordstore.NewSQLStore(db, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize record store", "error", err)
	}

	// Initialize repositories with logger and record store
	orderRepo := repositories.NewOrderRepository(store, appLogger)
	productRepo := repositories.NewProductRepository(store, appLogger)

	// Initialize services with logger
	executor := saga.NewExecutor(appLogger)
	fulfillmentService := service.NewFulfillmentService(orderRepo, productRepo, executor, botConfig.CallTimeout, appLogger)
	courierService := service.NewCourierService(orderRepo, fulfillmentService, botConfig.CallTimeout, appLogger)
	orderService := service.NewOrderService(orderRepo, botConfig.CallTimeout, appLogger)

	// Builder sessions and chat plumbing
	sessions := session.NewStore(botConfig.NavStackDepth, botConfig.SessionTimeout, appLogger)
	machine := builder.NewMachine(productRepo, appLogger)

	surfaceURL := envconfig.GetEnv("BOT_SURFACE_URL", "http://localhost:8081")
	messenger := chat.NewHTTPMessenger(surfaceURL, &http.Client{Timeout: botConfig.CallTimeout}, appLogger)
	dispatcher := handler.NewDispatcher(sessions, machine, orderService, courierService, messenger, botConfig.CallTimeout, appLogger)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go dispatcher.RunSweeper(sweepCtx, botConfig.SweepInterval)

	webhookHandler := handler.NewWebhookHandler(dispatcher, orderService, db, appLogger)

	httpHandler := appLogger.HTTPMiddleware(webhookHandler.Routes())

	initialPort := flagConfig.Port
	if initialPort == "" {
		initialPort = envconfig.GetEnv("PORT", "8080")
	}
	host := envconfig.GetEnv("HOST", "localhost")

	port := initialPort

	server := &http.Server{
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		server.Addr = host + ":" + port

		go func() {
			appLogger.Info("Starting HTTP gateway",
				"host", host,
				"port", port,
				"address", server.Addr)

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLogger.Error("Server error", "error", err)
				serverErrors <- err
			}
		}()

		select {
		case err := <-serverErrors:
			if strings.Contains(err.Error(), "address already in use") && i < maxRetries-1 {
				portNum := 8080 + i + 1
				port = fmt.Sprintf("%d", portNum)
				appLogger.Warn("Port already in use, trying alternative port",
					"current_port", server.Addr,
					"next_port", port)
				continue
			} else {
				appLogger.Error("Failed to start server after retries", "error", err)
				return
			}
		case <-time.After(200 * time.Millisecond):
			appLogger.Info("Gateway started successfully", "port", port)
		}

		break
	}

	waitForShutdown(server, stopSweeper, appLogger)
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drains the gateway and
// stops the session sweeper.
func waitForShutdown(server *http.Server, stopSweeper context.CancelFunc, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info("Shutdown signal received", "signal", sig.String())
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		if err := server.Close(); err != nil {
			log.Error("Forced close failed", "error", err)
		}
		return
	}

	log.Info("Gateway stopped")
}
