package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/sentiment_mint/internal/config"
	"github.com/vitos/sentiment_mint/internal/domain"
	"github.com/vitos/sentiment_mint/internal/infrastructure/logger"
	"github.com/vitos/sentiment_mint/internal/infrastructure/prices"
	"github.com/vitos/sentiment_mint/internal/infrastructure/storage"
	"github.com/vitos/sentiment_mint/internal/usecase"
	"github.com/vitos/sentiment_mint/internal/web"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Logging.File != "" {
		return logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	}
	return logger.NewLogger(cfg.Logging.Level)
}

func newRepository(cfg *config.Config, log *zap.Logger) (domain.MintRepository, func(), error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		return storage.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn("Failed to close sqlite", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func main() {
	// 1. Load Config
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	repo, closeRepo, err := newRepository(cfg, log)
	if err != nil {
		log.Fatal("Failed to init storage", zap.Error(err))
	}
	defer closeRepo()

	// 4. Prices and sentiment
	priceSource := prices.NewStaticSource(cfg.Prices.AssetA, cfg.Prices.AssetB)
	evaluator := usecase.NewSentimentEvaluator(cfg.SentimentThresholds())

	// 5. Synthesizer and mint service
	synth := usecase.NewSynthesizer(usecase.SynthesizerConfig{
		IntakeDir: cfg.Dirs.Uploads,
		OutputDir: cfg.Dirs.Generated,
		LabelA:    cfg.Prices.LabelA,
		LabelB:    cfg.Prices.LabelB,
		Workers:   cfg.Animation.Workers,
		Fonts:     cfg.Fonts.Candidates,
	}, priceSource, evaluator, log)

	svc := usecase.NewMintService(usecase.MintServiceConfig{
		UploadsDir:   cfg.Dirs.Uploads,
		GeneratedDir: cfg.Dirs.Generated,
		URLPrefix:    web.APIPrefix,
		Animation: usecase.AnimationOptions{
			DurationSeconds: cfg.Animation.DurationSeconds,
			FPS:             cfg.Animation.FPS,
		},
	}, repo, synth, priceSource, evaluator, log)
	if err := svc.EnsureDirectories(); err != nil {
		log.Fatal("Failed to create directories", zap.Error(err))
	}

	feed := web.NewMintFeed(log)
	svc.SetPublisher(feed)

	log.Info("Market snapshot", zap.Any("market", svc.CurrentMarket()))

	// 6. Start Server
	server := web.NewServer(cfg.Server.Port, svc, feed, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown failed", zap.Error(err))
	}
}
