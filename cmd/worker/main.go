package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/config"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/db"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/notification"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/rabbitmq"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/redisstore"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	svc := notification.NewService(
		notification.NewRepo(gdb),
		conversation.NewRepo(gdb),
		rds,
	)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// Same declaration as the publisher: failed events dead-letter to the DLQ.
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var evt rabbitmq.NotificationEvent
				if err := json.Unmarshal(d.Body, &evt); err != nil || evt.ConversationID == "" {
					log.Printf("worker=%d bad event err=%v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleEvent(ctx, svc, evt); err != nil {
					log.Printf("worker=%d notify failed conversation=%s cost=%s err=%v",
						workerID, evt.ConversationID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed conversation=%s err=%v", workerID, evt.ConversationID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// handleEvent is idempotent: redelivered events resolve to the existing
// notification row.
func handleEvent(ctx context.Context, svc *notification.Service, evt rabbitmq.NotificationEvent) error {
	id, created, err := svc.Notify(ctx, notification.NotifyInput{
		ConversationID: evt.ConversationID,
		MessageID:      evt.MessageID,
		UserID:         evt.UserID,
		MessagePreview: evt.MessagePreview,
		CustomerName:   evt.CustomerName,
	})
	if err != nil {
		return err
	}
	if created {
		log.Printf("notification created id=%s conversation=%s user=%s", id, evt.ConversationID, evt.UserID)
	}
	return nil
}
