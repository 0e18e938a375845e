package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/clinicdesk/clinic-appointment-api/internal/auth"
	"github.com/clinicdesk/clinic-appointment-api/internal/clinic"
	"github.com/clinicdesk/clinic-appointment-api/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	cipherSecret := os.Getenv("CIPHER_SECRET")
	if cipherSecret == "" {
		log.Fatal("CIPHER_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	repo := clinic.NewPgRepository(pool)
	cipher := auth.NewPasswordCipher(cipherSecret)

	if err := seedAdmin(context.Background(), repo, cipher); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if err := seedDoctors(context.Background(), repo, cipher, getInt("SEED_DOCTORS", 10)); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}

	log.Println("seed complete")
}

func seedAdmin(ctx context.Context, repo clinic.Repository, cipher *auth.PasswordCipher) error {
	email := getEnv("SEED_ADMIN_EMAIL", "admin@clinic.local")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = gofakeit.Password(true, true, true, false, false, 16)
		log.Printf("generated admin password: %s", password)
	}

	ciphertext, err := cipher.Encrypt(password)
	if err != nil {
		return err
	}

	if err := repo.CreateAdmin(ctx, &clinic.Admin{
		ID:             uuid.New(),
		Email:          email,
		PasswordCipher: ciphertext,
		Role:           clinic.RoleAdmin,
	}); err != nil {
		return err
	}

	log.Printf("admin seeded: %s", email)
	return nil
}

func seedDoctors(ctx context.Context, repo clinic.Repository, cipher *auth.PasswordCipher, count int) error {
	log.Printf("seeding %d doctors", count)

	for i := 0; i < count; i++ {
		password := gofakeit.Password(true, true, true, false, false, 16)
		ciphertext, err := cipher.Encrypt(password)
		if err != nil {
			return err
		}

		email := gofakeit.Email()
		if err := repo.CreateAdmin(ctx, &clinic.Admin{
			ID:             uuid.New(),
			Email:          email,
			PasswordCipher: ciphertext,
			Role:           clinic.RoleDoctor,
		}); err != nil {
			return err
		}

		log.Printf("doctor seeded: %s password=%s", email, password)
	}

	log.Println("doctors seeded")
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
