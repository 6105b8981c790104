package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/vitos/sentiment_mint/internal/config"
	"github.com/vitos/sentiment_mint/internal/domain"
	"github.com/vitos/sentiment_mint/internal/infrastructure/files"
	"github.com/vitos/sentiment_mint/internal/infrastructure/logger"
	"github.com/vitos/sentiment_mint/internal/infrastructure/prices"
	"github.com/vitos/sentiment_mint/internal/usecase"
)

var errNoInput = errors.New("usage: synth -in image.png [-name out] [-duration 3 -fps 5] [-a 37000 -b 100]")

type options struct {
	configPath string
	in         string
	name       string
	outDir     string
	duration   int
	fps        int
	assetA     float64
	assetB     float64
	setA       bool
	setB       bool
	seed       uint64
}

func parseOptions(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", config.DefaultPath, "path to config file")
	fs.StringVar(&o.in, "in", "", "source image (png or jpeg)")
	fs.StringVar(&o.name, "name", "", "output base name, defaults to the source name")
	fs.StringVar(&o.outDir, "out", "", "output directory, defaults to dirs.generated")
	fs.IntVar(&o.duration, "duration", 0, "animation length in seconds, defaults to animation.duration_seconds")
	fs.IntVar(&o.fps, "fps", 0, "frames per second, defaults to animation.fps")
	fs.Float64Var(&o.assetA, "a", 0, "price of asset A, overrides prices.asset_a")
	fs.Float64Var(&o.assetB, "b", 0, "price of asset B, overrides prices.asset_b")
	fs.Uint64Var(&o.seed, "seed", 0, "fixed random seed, 0 means random")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Only flags given on the command line override the config, so -a 0 is a real zero price.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			o.setA = true
		case "b":
			o.setB = true
		}
	})

	if o.in == "" {
		return nil, errNoInput
	}
	if o.duration < 0 || o.fps < 0 {
		return nil, fmt.Errorf("duration and fps must not be negative")
	}
	return o, nil
}

// snapshot merges the configured snapshot with any explicit overrides.
func (o *options) snapshot(cfg *config.Config) domain.PriceSnapshot {
	snap := domain.PriceSnapshot{AssetA: cfg.Prices.AssetA, AssetB: cfg.Prices.AssetB}
	if o.setA {
		snap.AssetA = o.assetA
	}
	if o.setB {
		snap.AssetB = o.assetB
	}
	return snap
}

func (o *options) animation(cfg *config.Config) usecase.AnimationOptions {
	anim := usecase.AnimationOptions{
		DurationSeconds: cfg.Animation.DurationSeconds,
		FPS:             cfg.Animation.FPS,
	}
	if o.duration > 0 {
		anim.DurationSeconds = o.duration
	}
	if o.fps > 0 {
		anim.FPS = o.fps
	}
	return anim
}

func run(ctx context.Context, o *options, log *zap.Logger, cfg *config.Config) (*usecase.Artifact, error) {
	src, err := filepath.Abs(o.in)
	if err != nil {
		return nil, fmt.Errorf("invalid source path: %w", err)
	}
	name := o.name
	if name == "" {
		name, _ = files.SplitExt(files.SecureFilename(filepath.Base(src)))
	}
	outDir := o.outDir
	if outDir == "" {
		outDir = cfg.Dirs.Generated
	}

	var synthOpts []usecase.SynthesizerOption
	if o.seed != 0 {
		synthOpts = append(synthOpts, usecase.WithRandFactory(usecase.SeededRand(o.seed)))
	}

	snap := o.snapshot(cfg)
	// The source's own directory is the intake directory for a one-shot run.
	synth := usecase.NewSynthesizer(usecase.SynthesizerConfig{
		IntakeDir: filepath.Dir(src),
		OutputDir: outDir,
		LabelA:    cfg.Prices.LabelA,
		LabelB:    cfg.Prices.LabelB,
		Workers:   cfg.Animation.Workers,
		Fonts:     cfg.Fonts.Candidates,
	}, prices.NewStaticSource(snap.AssetA, snap.AssetB), usecase.NewSentimentEvaluator(cfg.SentimentThresholds()), log, synthOpts...)

	return synth.Synthesize(ctx, src, name, o.animation(cfg))
}

func main() {
	o, err := parseOptions(os.Args[1:])
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	artifact, err := run(context.Background(), o, log, cfg)
	if err != nil {
		log.Fatal("Synthesis failed", zap.Error(err))
	}
	fmt.Println(artifact.Path)
}
