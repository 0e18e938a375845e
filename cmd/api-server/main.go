package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicdesk/clinic-appointment-api/internal/api"
	"github.com/clinicdesk/clinic-appointment-api/internal/auth"
	"github.com/clinicdesk/clinic-appointment-api/internal/clinic"
	"github.com/clinicdesk/clinic-appointment-api/internal/config"
	"github.com/clinicdesk/clinic-appointment-api/internal/db"
	"github.com/clinicdesk/clinic-appointment-api/internal/mail"
	"github.com/clinicdesk/clinic-appointment-api/internal/payment"
	redisclient "github.com/clinicdesk/clinic-appointment-api/internal/redis"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Apply schema if the migration file is shipped alongside the binary
	if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
		log.Printf("migration file not found, skipping: %v", err)
	} else if _, err := pgPool.Exec(rootCtx, string(migration)); err != nil {
		log.Printf("migration warning: %v", err)
	} else {
		log.Println("migration applied")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	sender, err := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	if err != nil {
		log.Fatalf("smtp sender error: %v", err)
	}

	repo := clinic.NewPgRepository(pgPool)
	cipher := auth.NewPasswordCipher(cfg.CipherSecret)
	gateway := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	svc := clinic.NewService(repo, cipher, gateway, sender, cfg.RazorpayKeySecret)
	throttle := redisclient.NewLoginThrottle(rdb, cfg.LoginWindow, cfg.LoginMaxAttempts)

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Throttle:  throttle,
		JWTSecret: cfg.JWTSecret,
		RateLimit: api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("http listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("api-server stopped")
}
