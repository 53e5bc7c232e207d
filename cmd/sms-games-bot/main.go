package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/kweller/sms-games-bot/internal/config"
	"github.com/kweller/sms-games-bot/internal/creation"
	"github.com/kweller/sms-games-bot/internal/gateway"
	"github.com/kweller/sms-games-bot/internal/obslog"
	"github.com/kweller/sms-games-bot/internal/server"
	"github.com/kweller/sms-games-bot/internal/storycfg"
	"github.com/kweller/sms-games-bot/pkg/smsdto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cat, err := storycfg.New(cfg.StoryConfigDir)
	if err != nil {
		log.Fatalf("story config error: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.GatewayAPIKey != "" {
			h["X-Api-Key"] = cfg.GatewayAPIKey
		}
		return h
	}

	client := gateway.NewClient(cfg.OptinBaseURL, cfg.GameHost,
		gateway.WithTimeout(time.Duration(cfg.RequestTimeoutSec)*time.Second),
		gateway.WithHeaderProvider(headers),
	)

	mgr := creation.NewManager(rdb, client, client)

	var repo *creation.Repository
	if cfg.DatabaseURL != "" {
		repo, err = creation.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("repository init error: %v", err)
		}
		mgr.AttachRepository(repo)
	}

	srv := server.New(cat, mgr)
	go func() {
		obslog.L().Info("listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Optional second ingest path: the gateway's WebSocket event feed.
	var stream *gateway.Stream
	if cfg.GatewayWSURL != "" {
		stream = gateway.NewStream(cfg.GatewayWSURL, 5)
		stream.SetHeaderProvider(headers)
		stream.OnStateChange(func(state gateway.StreamState) {
			obslog.L().Info("stream_state", zap.String("state", string(state)))
		})
		stream.OnTurn(func(ev *smsdto.TurnEvent) {
			turn, story, verr := server.ValidateTurn(ev, cat)
			if verr != nil {
				obslog.L().Warn("stream_turn_rejected", zap.String("phone", ev.Phone), zap.Error(verr))
				return
			}
			if serr := mgr.Submit(turn, story); serr != nil {
				obslog.L().Warn("stream_turn_rejected", zap.String("phone", ev.Phone), zap.Error(serr))
			}
		})
		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := stream.Connect(cctx); err != nil {
			obslog.L().Warn("stream_connect_error", zap.Error(err))
		}
		cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = srv.Shutdown()
	if stream != nil {
		_ = stream.Close(context.Background())
	}
	mgr.Wait()
	if repo != nil {
		_ = repo.Close()
	}
	_ = rdb.Close()
}
