package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/facturave/receipt-ingest/internal/common"
	"github.com/facturave/receipt-ingest/internal/users"
)

// dbhealth pings the users database and, when given a user id argument,
// probes the username lookup:
//
//	dbhealth [user-id]
func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := common.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := users.Open(ctx, users.DBConfig{
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		User:        cfg.DBUser,
		Password:    cfg.DBPassword,
		Database:    cfg.DBName,
		SSLRootCA:   cfg.DBSSLRootCA,
		DialTimeout: 3 * time.Second,
	}, logger)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer pool.Close()

	if err := users.HealthCheck(ctx, pool, time.Second, logger); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Println("DB health: OK")

	if len(os.Args) > 1 {
		repo := users.NewRepository(pool, logger)
		username, err := repo.Username(ctx, os.Args[1])
		if err != nil {
			log.Fatalf("looking up username: %v", err)
		}
		if username == nil {
			log.Printf("no username found for user id %q", os.Args[1])
			return
		}
		log.Printf("username for %q: %s", os.Args[1], *username)
	}
}
