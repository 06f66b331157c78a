package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iclockd/internal/attendance"
	"iclockd/internal/config"
	"iclockd/internal/queue"
	"iclockd/internal/store"
)

// Worker consumes accepted-event ids from the queue and maintains
// per-date tallies in Redis for dashboards. Persistence already
// happened in the API process; everything here is advisory fan-out.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "iclockd:events")
	}

	repo := attendance.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for events...")
	for msg := range messages {
		if msg.Type != "attendance" {
			continue
		}

		id := string(msg.Body)
		evt, err := repo.GetEvent(ctx, id)
		if err != nil {
			log.Printf("fetch event %s failed: %v", id, err)
			continue
		}

		log.Printf("event %s: %s %d on %s authorized=%v (%s)",
			evt.ID, evt.SubjectKind, evt.SubjectKey, evt.Date, evt.Authorized, evt.Remark)

		tallyKey := fmt.Sprintf("attendance:tally:%s", evt.Date)
		if err := redisClient.Client.Incr(ctx, tallyKey).Err(); err != nil {
			log.Printf("tally incr failed: %v", err)
			continue
		}
		// Tallies are throwaway dashboard state; let them age out.
		redisClient.Client.Expire(ctx, tallyKey, 60*24*time.Hour)
	}

	log.Println("worker stopped")
}
