package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/config"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/db"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/httpapi"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/rabbitmq"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/redisstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	db.Migrate(gdb)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	// Without a broker notifications fall back to inline creation.
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit unavailable, notifications created inline err=%v", err)
		pub = nil
	} else {
		defer pub.Close()
	}

	router := httpapi.NewRouter(gdb, cfg, rds, pub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server starting port=%s poll_interval=%s stale_threshold=%s",
			cfg.Port, cfg.PollInterval, cfg.StaleThreshold)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server exited")
}
