package usecase

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/vitos/sentiment_mint/internal/domain"
	"github.com/vitos/sentiment_mint/internal/infrastructure/files"
)

const (
	DefaultPadding         = 60
	DefaultTileSize        = 20
	DefaultDurationSeconds = 5
	DefaultFPS             = 10
	DefaultFontSize        = 18

	textShadowOffset = 2
	artifactExt      = ".gif"
)

type AnimationOptions struct {
	DurationSeconds int
	FPS             int
}

func (o AnimationOptions) withDefaults() AnimationOptions {
	if o.DurationSeconds <= 0 {
		o.DurationSeconds = DefaultDurationSeconds
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	return o
}

func (o AnimationOptions) FrameCount() int {
	o = o.withDefaults()
	return o.DurationSeconds * o.FPS
}

// DelayCentis is the per-frame GIF delay, 1/fps seconds in hundredths.
func (o AnimationOptions) DelayCentis() int {
	o = o.withDefaults()
	d := 100 / o.FPS
	if d < 1 {
		d = 1
	}
	return d
}

// Artifact describes a published animation.
type Artifact struct {
	Path   string
	Frames int
	Prices domain.PriceSnapshot
}

type SynthesizerConfig struct {
	IntakeDir string
	OutputDir string
	LabelA    string
	LabelB    string
	Workers   int
	Fonts     []string
}

// RandFactory returns the random source used to paint frame i.
type RandFactory func(frame int) domain.RandSource

// SeededRand paints every frame from a PCG stream keyed by (seed, frame), so
// the output is reproducible.
func SeededRand(seed uint64) RandFactory {
	return func(frame int) domain.RandSource {
		return rand.New(rand.NewPCG(seed, uint64(frame)))
	}
}

func defaultRand(int) domain.RandSource {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

type Synthesizer struct {
	cfg       SynthesizerConfig
	prices    domain.PriceSource
	evaluator *SentimentEvaluator
	newRand   RandFactory
	logger    *zap.Logger

	faceMu   sync.Mutex
	face     font.Face
	faceName string
}

type SynthesizerOption func(*Synthesizer)

func WithRandFactory(f RandFactory) SynthesizerOption {
	return func(s *Synthesizer) { s.newRand = f }
}

func NewSynthesizer(cfg SynthesizerConfig, prices domain.PriceSource, evaluator *SentimentEvaluator, logger *zap.Logger, opts ...SynthesizerOption) *Synthesizer {
	if cfg.LabelA == "" {
		cfg.LabelA = "BTC"
	}
	if cfg.LabelB == "" {
		cfg.LabelB = "SOL"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Fonts == nil {
		cfg.Fonts = DefaultFontCandidates
	}

	s := &Synthesizer{
		cfg:       cfg,
		prices:    prices,
		evaluator: evaluator,
		newRand:   defaultRand,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.face, s.faceName = LoadFace(DefaultFontSize, FontChain(cfg.Fonts), logger)
	logger.Info("Synthesizer ready", zap.String("font", s.faceName), zap.Int("workers", cfg.Workers))
	return s
}

// OutputPath is where the artifact for baseName is published.
func (s *Synthesizer) OutputPath(baseName string) (string, error) {
	return files.Resolve(s.cfg.OutputDir, baseName+artifactExt)
}

// Synthesize renders the animated artifact for the image at sourcePath and
// publishes it as <OutputDir>/<baseName>.gif. Nothing is written on failure.
func (s *Synthesizer) Synthesize(ctx context.Context, sourcePath, baseName string, opts AnimationOptions) (*Artifact, error) {
	start := time.Now()
	opts = opts.withDefaults()

	inside, err := files.Within(s.cfg.IntakeDir, sourcePath)
	if err != nil || !inside {
		s.logger.Warn("Source outside intake directory", zap.String("path", sourcePath))
		return nil, domain.SynthesisError("source image is outside the intake directory", files.ErrOutsideDir)
	}

	outputPath, err := s.OutputPath(baseName)
	if err != nil {
		return nil, domain.SynthesisError("invalid output name", err)
	}

	src, err := decodeImage(sourcePath)
	if err != nil {
		s.logger.Warn("Failed to decode source image", zap.String("path", sourcePath), zap.Error(err))
		return nil, domain.SynthesisError("source is not a decodable image", err)
	}

	snap := s.prices.GetPrices()
	frames, err := s.RenderFrames(ctx, src, snap, opts.FrameCount())
	if err != nil {
		return nil, domain.SynthesisError("frame generation failed", err)
	}

	anim := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}
	for i, f := range frames {
		anim.Image[i] = f
		anim.Delay[i] = opts.DelayCentis()
	}

	err = files.WriteAtomic(outputPath, func(w io.Writer) error {
		return gif.EncodeAll(w, anim)
	})
	if err != nil {
		s.logger.Error("Failed to encode animation", zap.String("output", outputPath), zap.Error(err))
		return nil, domain.SynthesisError("failed to encode animation", err)
	}

	s.logger.Info("Animation synthesized",
		zap.String("output", outputPath),
		zap.Int("frames", len(frames)),
		zap.Float64("asset_a", snap.AssetA),
		zap.Float64("asset_b", snap.AssetB),
		zap.Duration("took", time.Since(start)),
	)
	return &Artifact{Path: outputPath, Frames: len(frames), Prices: snap}, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// RenderFrames produces n paletted frames, each with its own palette.
// Frames are independent, so they are painted and palettized by a bounded
// pool of workers; output order is frame order.
func (s *Synthesizer) RenderFrames(ctx context.Context, src image.Image, snap domain.PriceSnapshot, n int) ([]*image.Paletted, error) {
	raw, err := s.RenderRGBA(ctx, src, snap, n)
	if err != nil {
		return nil, err
	}

	out := make([]*image.Paletted, n)
	s.parallel(n, func(i int) {
		out[i] = Palettize(raw[i])
	})
	return out, nil
}

// RenderRGBA returns the full-colour frames before palette quantisation.
func (s *Synthesizer) RenderRGBA(ctx context.Context, src image.Image, snap domain.PriceSnapshot, n int) ([]*image.RGBA, error) {
	if n <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", n)
	}

	b := src.Bounds()
	canvas := image.Rect(0, 0, b.Dx()+2*DefaultPadding, b.Dy()+2*DefaultPadding)
	sentiment := s.evaluator.Evaluate(snap)
	text := s.textLayer(canvas, snap)

	frames := make([]*image.RGBA, n)
	s.parallel(n, func(i int) {
		if ctx.Err() != nil {
			return
		}
		frames[i] = s.renderFrame(i, canvas, src, text, sentiment)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// renderFrame paints one frame. The frame index only selects the random
// stream; each frame is an independent draw.
func (s *Synthesizer) renderFrame(i int, canvas image.Rectangle, src, text image.Image, sentiment domain.Sentiment) *image.RGBA {
	frame := image.NewRGBA(canvas)
	rnd := s.newRand(i)

	for x := 0; x < canvas.Dx(); x += DefaultTileSize {
		for y := 0; y < canvas.Dy(); y += DefaultTileSize {
			c := TileColor(x/DefaultTileSize, y/DefaultTileSize, sentiment, rnd)
			tile := image.Rect(x, y, x+DefaultTileSize, y+DefaultTileSize).Intersect(canvas)
			draw.Draw(frame, tile, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}

	draw.Draw(frame, canvas, text, image.Point{}, draw.Over)

	b := src.Bounds()
	pasteAt := image.Pt((canvas.Dx()-b.Dx())/2, (canvas.Dy()-b.Dy())/2)
	draw.Draw(frame, image.Rectangle{Min: pasteAt, Max: pasteAt.Add(b.Size())}, src, b.Min, draw.Over)

	return frame
}

// PriceLabel formats one overlay line, e.g. "BTC: $35250.00".
func PriceLabel(label string, price float64) string {
	return label + ": $" + decimal.NewFromFloat(price).StringFixed(2)
}

// textLayer renders both price lines with a drop shadow onto a transparent
// layer. The text is identical on every frame, so it is drawn once.
func (s *Synthesizer) textLayer(canvas image.Rectangle, snap domain.PriceSnapshot) *image.RGBA {
	layer := image.NewRGBA(canvas)

	s.faceMu.Lock()
	defer s.faceMu.Unlock()

	ascent := s.face.Metrics().Ascent.Ceil()
	lines := []struct {
		text string
		y    int
	}{
		{PriceLabel(s.cfg.LabelA, snap.AssetA), 10},
		{PriceLabel(s.cfg.LabelB, snap.AssetB), 35},
	}

	for _, l := range lines {
		for _, pass := range []struct {
			off int
			col color.Color
		}{
			{textShadowOffset, color.Black},
			{0, color.White},
		} {
			d := &font.Drawer{
				Dst:  layer,
				Src:  image.NewUniform(pass.col),
				Face: s.face,
				Dot:  fixed.P(DefaultPadding+pass.off, l.y+pass.off+ascent),
			}
			d.DrawString(l.text)
		}
	}
	return layer
}

func (s *Synthesizer) parallel(n int, fn func(i int)) {
	workers := s.cfg.Workers
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
