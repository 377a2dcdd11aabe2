package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qgo-dispatch/internal/config"
	"qgo-dispatch/internal/database"
	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/events"
	"qgo-dispatch/internal/fixtures"
	"qgo-dispatch/internal/handlers"
	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/internal/mirror"
	"qgo-dispatch/internal/services"
	"qgo-dispatch/internal/session"
	"qgo-dispatch/internal/store"
	"qgo-dispatch/internal/store/firestoredb"
	"qgo-dispatch/internal/store/memstore"
	"qgo-dispatch/internal/websocket"

	firebase "firebase.google.com/go/v4"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 QGO DISPATCH SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: invalid configuration: %v", err)
	}
	config.SetupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Device storage and push tokens live in Postgres when it is configured
	var devices middleware.Devices = session.NewMemoryDevices()
	var tokens *database.FCMTokens
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Fatalf("❌ FATAL ERROR: Database migrations failed: %v", err)
		}
		devices = database.NewLocalStorage(db)
		tokens = database.NewFCMTokens(db)
	} else {
		log.Println("⚠️  DATABASE_URL not set: sessions kept in memory, push notifications disabled")
	}

	var app *firebase.App
	if cfg.HasFirebase() {
		app, err = services.NewFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile, cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Fatalf("❌ FATAL ERROR: %v", err)
		}
		log.Println("✅ Firebase app initialized")
	}

	var st store.Store
	switch cfg.Backend() {
	case config.BackendFirestore:
		fs, err := firestoredb.New(ctx, app)
		if err != nil {
			log.Fatalf("❌ FATAL ERROR: %v", err)
		}
		defer fs.Close()
		st = fs
		log.Println("✅ Firestore store ready")
	case config.BackendMemory:
		st = memstore.New()
		log.Println("✅ In-memory store ready")
	}

	fx, err := fixtures.Default(time.Now())
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: fixtures: %v", err)
	}
	if cfg.Backend() == config.BackendMemory {
		if _, err := fixtures.Seed(ctx, st, fx, false); err != nil {
			log.Fatalf("❌ FATAL ERROR: %v", err)
		}
	}
	ctrl := mirror.NewController(st, fx)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("⚠️  Failed to connect to Kafka: %v (job events disabled)", err)
		} else {
			defer kp.Close()
			publisher = kp
			log.WithField("topic", cfg.KafkaTopic).Println("✅ Kafka publisher ready")
		}
	}

	opts := []dispatch.Option{dispatch.WithPublisher(publisher)}
	if app != nil && cfg.HasFirebaseCredentials() && tokens != nil {
		fcm, err := services.NewFCMService(ctx, app, tokens)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", err)
		} else {
			opts = append(opts, dispatch.WithNotifier(fcm))
			log.Println("✅ Firebase Cloud Messaging initialized")
		}
	}
	svc := dispatch.NewService(st, ctrl, opts...)

	hub := websocket.NewHub(ctrl, svc)
	ctrl.OnChange(hub.Publish)
	go hub.Run(ctx)

	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("❌ FATAL ERROR: %v", err)
	}
	defer ctrl.Close()

	deps := handlers.Deps{
		Service:   svc,
		Sync:      ctrl,
		Devices:   devices,
		JWTSecret: cfg.JWTSecret,
	}
	if tokens != nil {
		deps.Tokens = tokens
	}
	if cfg.JWTSecret != "" {
		deps.WebSocket = websocket.HandleWebSocket(hub, cfg.JWTSecret)
	} else {
		log.Println("⚠️  APP_JWT_SECRET not set: websocket push disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("═══════════════════════════════════════════════════════════════════")
		log.Printf("✅ SERVER READY on port %s", cfg.Port)
		log.Println("═══════════════════════════════════════════════════════════════════")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Graceful shutdown failed: %v", err)
	}
}
