// cmd/boardshow/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jason-s-yu/boardshow/internal/cache"
	"github.com/jason-s-yu/boardshow/internal/config"
	"github.com/jason-s-yu/boardshow/internal/database"
	"github.com/jason-s-yu/boardshow/internal/game"
	"github.com/jason-s-yu/boardshow/internal/logging"
	"github.com/jason-s-yu/boardshow/internal/scores"
	"github.com/jason-s-yu/boardshow/internal/transport"
)

// scoreStore is a channel's score table.
type scoreStore interface {
	game.ScoreSource
	transport.RankSource
	Save(ctx context.Context, recs []scores.Record) error
}

func main() {
	cfg := config.Load()
	if err := logging.Setup(cfg.LogLevel, cfg.LogJSON); err != nil {
		log.Warnf("Bad LOG_LEVEL, keeping info: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisURL != "" {
		if err := cache.Connect(ctx, cfg.RedisURL); err != nil {
			log.Warnf("Redis unavailable, action log disabled: %v", err)
		} else {
			defer cache.Close()
		}
	}
	if cfg.DatabaseURL != "" {
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			log.Warnf("Postgres unavailable, using score files in %s: %v", cfg.ScoresDir, err)
		} else {
			defer database.Close()
		}
	}
	if err := os.MkdirAll(cfg.ScoresDir, 0o755); err != nil && database.DB == nil {
		log.Warnf("Could not create scores dir %s: %v", cfg.ScoresDir, err)
	}

	pool, err := ants.NewPool(cfg.WorkerPool, ants.WithNonblocking(true))
	if err != nil {
		log.Fatalf("Failed to create worker pool: %v", err)
	}
	defer pool.ReleaseTimeout(5 * time.Second)
	submit := func(fn func()) {
		if err := pool.Submit(fn); err != nil {
			go fn()
		}
	}

	storeFor := func(channel string) scoreStore {
		if database.DB != nil {
			return database.NewScoreStore(database.DB, channel)
		}
		return scores.NewFileSource(cfg.ScoresDir, channel)
	}

	rules := game.DefaultRules()
	rules.Board.Size = cfg.BoardSize
	rules.Rounds = cfg.Rounds
	rules.BombPenalty = cfg.BombPenalty
	rules.TurnTimeout = cfg.TurnTimeout
	rules.SignupTimeout = cfg.SignupTimeout

	hub := transport.NewHub([]byte(cfg.JWTSecret), cfg.NarrationPace)
	hub.Ranks = func(channel string) transport.RankSource { return storeFor(channel) }
	hub.Manager = game.NewManager(func(channel string) *game.ShowGame {
		store := storeFor(channel)
		g := game.NewShowGame(channel, rules, hub.Announcer(channel))
		g.Scores = store
		g.Pool = pool
		hub.Attach(g)
		g.OnGameEnd = func(id uuid.UUID, aborted bool, final []scores.Record) {
			if aborted {
				log.Warnf("Game %s: aborted, scores not saved.", id)
				return
			}
			submit(func() {
				sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := store.Save(sctx, final); err != nil {
					log.Errorf("Game %s: failed to save scores: %v", id, err)
				}
			})
		}
		return g
	})
	hub.Manager.PingFn = hub.Ping

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Printf("Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		log.Println("Shutting down...")
		hub.Manager.ShutdownAll()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := eg.Wait(); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
}
