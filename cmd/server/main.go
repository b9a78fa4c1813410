// Helpdesk chat server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/helpdesk/internal/agent"
	"github.com/ashureev/helpdesk/internal/api"
	"github.com/ashureev/helpdesk/internal/config"
	"github.com/ashureev/helpdesk/internal/identity"
	"github.com/ashureev/helpdesk/internal/middleware"
	"github.com/ashureev/helpdesk/internal/store"
	"github.com/ashureev/helpdesk/internal/ticket"
	"github.com/ashureev/helpdesk/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server",
		"port", cfg.Port,
		"env", cfg.Environment(),
		"dev", cfg.IsDevelopment(),
		"store", cfg.Store.Backend,
	)

	// Initialize dependencies.
	repo, err := store.New(cfg.Store, cfg.Conversation.TTL)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Store connected")

	// Initialize services.
	agentService := agent.NewService(cfg.Agent, repo,
		agent.WithHTTPClient(&http.Client{Timeout: cfg.Agent.HTTPTimeout}),
		agent.WithLogger(logger),
	)
	if agentService.IsConfigured() {
		slog.Info("Agent configured", "host", cfg.Agent.HostURL, "agent_id", cfg.Agent.AgentID)
	} else {
		slog.Warn("Agent not configured, chat will answer with setup instructions")
	}

	catalog, err := ticket.LoadCatalog(cfg.Ticket.CatalogPath)
	if err != nil {
		slog.Error("Failed to load ticket catalog", "error", err)
		os.Exit(1)
	}
	ticketClient := ticket.NewClient(cfg.Ticket, nil, logger)
	if !ticketClient.Enabled() {
		slog.Info("Ticket submission disabled (TICKET_API_URL not set)")
	}

	conns := agent.NewConnManager()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, agentService, ticketClient.Enabled(), agent.WelcomeMessage)
	healthHandler := api.NewHealthHandler(repo, agentService, cfg.HealthCheckTimeout)
	agentHandler := agent.NewHandler(agentService, conns, cfg)
	defer agentHandler.Close()
	ticketHandler := ticket.NewHandler(ticketClient, catalog, cfg.MaxRequestBodySize)

	allowedOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(allowedOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Everything else runs under an anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

		baseHandler.RegisterRoutes(r)
		agentHandler.RegisterRoutes(r)
		ticketHandler.RegisterRoutes(r)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WebSocket chats are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start conversation sweeper.
	sweeper := agent.NewSweeper(repo, agentService, conns, cfg.Conversation.TTL, cfg.Conversation.SweepInterval)
	sweeperDone := sweeper.Start(ctx)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	select {
	case <-sweeperDone:
	case <-shutdownCtx.Done():
		slog.Warn("Sweeper did not stop before shutdown deadline")
	}

	slog.Info("Server stopped successfully")
}
