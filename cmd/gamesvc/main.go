package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/monopoly-services/configs"
	"github.com/avvvet/monopoly-services/internal/broker"
	"github.com/avvvet/monopoly-services/internal/db"
	gameconfig "github.com/avvvet/monopoly-services/internal/gamesvc/config"
	handlers "github.com/avvvet/monopoly-services/internal/gamesvc/handlers"
	"github.com/avvvet/monopoly-services/internal/gamesvc/routes"
	"github.com/avvvet/monopoly-services/internal/gamesvc/rules"
	"github.com/avvvet/monopoly-services/internal/gamesvc/session"
	"github.com/avvvet/monopoly-services/internal/gamesvc/store"
	nats "github.com/avvvet/monopoly-services/internal/nats"
	"github.com/avvvet/monopoly-services/internal/snowflake"
	sockethandlers "github.com/avvvet/monopoly-services/internal/socketsvc/handlers"
	"github.com/avvvet/monopoly-services/internal/socketsvc/ws"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

func main() {
	config.LoadEnv(SERVICE_NAME)
	cfg, err := gameconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	instanceId := config.CreateUniqueInstance(SERVICE_NAME)
	logFile := config.Logging(SERVICE_NAME+"_service_"+instanceId, cfg.Debug, cfg.LogStdout)
	defer logFile.Close()

	repo, closeRepo := openRepository(cfg)
	defer closeRepo()

	opts := []session.Option{}
	if cfg.EnforceTurnOrder {
		opts = append(opts, session.WithTurnPolicy(rules.StrictTurnOrder))
		log.Info("strict turn order enabled")
	}

	// NATS is optional, rooms work without it
	if cfg.NatsURL != "" {
		n, err := nats.Connect(SERVICE_NAME+"_service", cfg.NatsURL, cfg.NatsToken)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		opts = append(opts, session.WithPublisher(broker.NewBroker(n.Conn, instanceId)))
	}

	registry := ws.NewRegistry()
	coordinator := session.NewCoordinator(repo, registry, snowflake.New(), opts...)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	tokenAuth := handlers.NewTokenAuth(cfg.JWTSecret)
	if cfg.Debug {
		handlers.LogDebugToken(tokenAuth, 1)
	}
	gameHandler := handlers.NewHandler(coordinator, tokenAuth, cfg.Port)
	socketHandler := sockethandlers.NewHandler(coordinator, cfg.AllowedOrigins)
	routes.SetRoutes(r, gameHandler, socketHandler.HandleWebSocket)

	// Create server with timeout settings. Sockets clear these deadlines on upgrade.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// openRepository builds the game store chain: Mongo or memory, optionally
// fronted by the Redis cache.
func openRepository(cfg gameconfig.Config) (session.Repository, func()) {
	var (
		backend store.Backend
		closers []func()
	)

	switch cfg.Store {
	case gameconfig.StoreMemory:
		log.Warn("using in-memory game store, games are lost on restart")
		backend = store.NewMemoryGameStore()
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		database, err := db.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		if err := db.EnsureGameIndexes(ctx, database); err != nil {
			log.Warnf("unable to create game indexes: %v", err)
		}
		log.Printf("mongodb connection established successfully")

		backend = store.NewGameStore(database)
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			database.Client().Disconnect(ctx)
		})
	}

	var repo session.Repository = backend
	if cfg.RedisURL != "" {
		pool := store.NewRedisPool(cfg.RedisURL)
		repo = store.NewCachedGameStore(backend, pool, cfg.RedisTTL)
		closers = append(closers, func() { pool.Close() })
		log.Infof("redis game cache enabled, ttl %s", cfg.RedisTTL)
	}

	return repo, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
