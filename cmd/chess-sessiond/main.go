package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	appcfg "github.com/hyeok-dev/chess-sessiond/internal/config"
	"github.com/hyeok-dev/chess-sessiond/internal/archive"
	"github.com/hyeok-dev/chess-sessiond/internal/engine"
	"github.com/hyeok-dev/chess-sessiond/internal/httpd"
	"github.com/hyeok-dev/chess-sessiond/internal/msgcat"
	"github.com/hyeok-dev/chess-sessiond/internal/obslog"
	"github.com/hyeok-dev/chess-sessiond/internal/session"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	store, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("session store init error: %v", err)
	}

	eng := engine.New()
	verifier := session.NewVerifier(store, eng, cfg.VerifyDelay)

	// Archive is optional: without a DATABASE_URL finished games stay in memory.
	var repo archive.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
	} else {
		repo = archive.NewMemoryRepository()
	}
	verifier.AttachArchive(repo)

	mgr := session.NewManager(store, eng, verifier)

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	srv := httpd.New(mgr, msgs)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.ListenAddr) }()
	obslog.L().Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.Duration("verify_delay", cfg.VerifyDelay),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case sig := <-sigCh:
		obslog.L().Info("shutting down", zap.String("signal", sig.String()))
	}

	_ = srv.Shutdown()
	verifier.Close()
	_ = repo.Close()
	_ = store.Close()
}
