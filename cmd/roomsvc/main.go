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
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/tombola-service/configs"
	mongodb "github.com/avvvet/tombola-service/internal/db"
	natscli "github.com/avvvet/tombola-service/internal/nats"
	"github.com/avvvet/tombola-service/internal/roomsvc/archive"
	"github.com/avvvet/tombola-service/internal/roomsvc/auth"
	"github.com/avvvet/tombola-service/internal/roomsvc/broker"
	"github.com/avvvet/tombola-service/internal/roomsvc/caller"
	roomcfg "github.com/avvvet/tombola-service/internal/roomsvc/config"
	"github.com/avvvet/tombola-service/internal/roomsvc/db"
	"github.com/avvvet/tombola-service/internal/roomsvc/handlers"
	"github.com/avvvet/tombola-service/internal/roomsvc/lifecycle"
	"github.com/avvvet/tombola-service/internal/roomsvc/registry"
	"github.com/avvvet/tombola-service/internal/roomsvc/room"
	"github.com/avvvet/tombola-service/internal/roomsvc/routes"
	"github.com/avvvet/tombola-service/internal/roomsvc/ws"
)

const SERVICE_NAME = "tombola"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg := roomcfg.Load()
	if cfg.JWTSecret == "" {
		log.Error("Error: JWT_SECRET_KEY is required")
		os.Exit(1)
	}

	// operator accounts
	var store auth.OperatorStore
	if cfg.PostgresURL != "" {
		pool, err := db.Connect(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer db.ClosePool()
		log.Printf("pg connection established successfully")

		pgStore := auth.NewPgOperatorStore(pool)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to prepare operators table: %v", err)
		}
		store = pgStore
	} else {
		log.Warn("POSTGRES_URL not set, operator accounts live in memory only")
		store = auth.NewMemoryStore()
	}

	authSvc := auth.NewService(store, cfg.JWTSecret, cfg.TokenTTL)
	if err := authSvc.SeedSuperAdmin(context.Background(), cfg.SuperAdminEmail, cfg.SuperAdminPassword, cfg.SuperAdminName); err != nil {
		log.Fatalf("Failed to seed super admin: %v", err)
	}

	// round archive
	var archiver room.Archiver = archive.Logger{}
	var mongoArchive *archive.MongoArchive
	if cfg.MongoURI != "" {
		mdb, err := mongodb.ConnectToDB(cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongodb.Disconnect(mdb)
		if err := mongodb.CreateTTLIndexForCollection(mdb, archive.Collection); err != nil {
			log.Warnf("archive TTL index: %v", err)
		}
		mongoArchive = archive.NewMongoArchive(mdb, cfg.ArchiveRetention)
		archiver = mongoArchive
		log.Printf("MongoDB archive ready")
	}

	// NATS mirror of room events
	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		n, err := natscli.Connect(SERVICE_NAME+"_"+instanceId, cfg.NatsURL, cfg.NatsToken)
		if err != nil {
			log.Errorf("Error: unable to connect to NATS server %v", err)
			os.Exit(1)
		}
		defer n.Conn.Close()
		natsConn = n.Conn
		log.Printf("NATS connection established successfully %s", n.Url)
	}

	reg := registry.New()
	b := broker.NewBroker(natsConn, reg)

	dir := room.NewDirectory(room.Options{
		NumberMin:           cfg.NumberMin,
		NumberMax:           cfg.NumberMax,
		CardSize:            cfg.CardSize,
		DefaultMaxPlayers:   cfg.DefaultMaxPlayers,
		MaxPlayersPerRoom:   cfg.MaxPlayersPerRoom,
		MaxRoomsPerOperator: cfg.MaxRoomsPerOperator,
		JoinLockAfter:       cfg.JoinLockAfter,
	}, reg, b, archiver)

	autoCaller := caller.New(dir, b)
	dir.OnRemove(func(code string) { autoCaller.Stop(code) })

	sup := lifecycle.New(reg, dir, cfg.GracePeriod)
	s := ws.NewWs(reg, dir, authSvc, autoCaller, b)

	var sub *nats.Subscription
	if natsConn != nil {
		var err error
		sub, err = b.SubscribeControl(dir.Remove)
		if err != nil {
			log.Errorf("Error: unable to subscribe to %s %v", broker.ControlTopic, err)
			os.Exit(1)
		}
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h := handlers.NewHandler(s, reg, dir, sup, handlers.Options{
		Port:        cfg.Port,
		SendBuffer:  cfg.SendBuffer,
		MessageRate: cfg.WSMessageRate,
	})
	routes.SetRoutes(r, h, authSvc.TokenAuth())

	// Create server with timeout settings
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
	log.Infof("%s service running at port %s (grace period %s)", SERVICE_NAME, server.Addr, cfg.GracePeriod)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if sub != nil {
		sub.Unsubscribe()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}

	for _, rm := range dir.List() {
		_ = dir.Remove(rm.Code, "The server is shutting down")
	}
	if mongoArchive != nil {
		mongoArchive.Wait(ctx)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
