package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kweller/sms-games-bot/internal/gateway"
	"github.com/kweller/sms-games-bot/pkg/smsdto"
)

// smscheck verifies connectivity to the bot's external collaborators:
// Redis, and optionally the gateway's WebSocket event feed.
func main() {
	redisURL := os.Getenv("REDIS_URL")
	wsURL := os.Getenv("GATEWAY_WS_URL")

	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis ping error: %v", err)
	} else {
		log.Printf("redis ok: %s", opts.Addr)
	}
	_ = rdb.Close()

	if wsURL == "" {
		log.Println("GATEWAY_WS_URL not set; skipping stream check")
		return
	}

	stream := gateway.NewStream(wsURL, 1)
	stream.OnStateChange(func(state gateway.StreamState) {
		log.Printf("stream state: %s", state)
	})
	stream.OnTurn(func(ev *smsdto.TurnEvent) {
		fmt.Printf("stream turn phone=%s story=%s text=%q\n", ev.Phone, ev.StoryID, ev.Args)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := stream.Connect(cctx); err != nil {
		log.Printf("stream connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = stream.Close(context.Background())
}
