package usecase_test

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/sentiment_mint/internal/domain"
	"github.com/vitos/sentiment_mint/internal/infrastructure/prices"
	"github.com/vitos/sentiment_mint/internal/usecase"
)

type synthFixture struct {
	intake string
	output string
	prices *prices.StaticSource
	synth  *usecase.Synthesizer
}

func newSynthFixture(t *testing.T, snap domain.PriceSnapshot) *synthFixture {
	t.Helper()
	root := t.TempDir()
	f := &synthFixture{
		intake: filepath.Join(root, "uploads"),
		output: filepath.Join(root, "generated_gifs"),
		prices: prices.NewStaticSource(snap.AssetA, snap.AssetB),
	}
	require.NoError(t, os.MkdirAll(f.intake, 0o755))
	require.NoError(t, os.MkdirAll(f.output, 0o755))

	f.synth = usecase.NewSynthesizer(usecase.SynthesizerConfig{
		IntakeDir: f.intake,
		OutputDir: f.output,
		Workers:   4,
		Fonts:     []string{},
	}, f.prices, usecase.NewSentimentEvaluator(domain.DefaultThresholds()), zap.NewNop(),
		usecase.WithRandFactory(usecase.SeededRand(42)))
	return f
}

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, png.Encode(out, img))
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSynthesize_WritesLoopingGIFWithExpectedFrames(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	src := filepath.Join(f.intake, "test_dummy_image.png")
	writePNG(t, src, 60, 30, color.NRGBA{R: 255, A: 255})

	out, err := f.synth.Synthesize(context.Background(), src, "test_dummy_neutral_gif",
		usecase.AnimationOptions{DurationSeconds: 1, FPS: 5})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.output, "test_dummy_neutral_gif.gif"), out.Path)
	assert.Equal(t, 5, out.Frames)
	assert.Equal(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120}, out.Prices)

	fh, err := os.Open(out.Path)
	require.NoError(t, err)
	defer fh.Close()
	anim, err := gif.DecodeAll(fh)
	require.NoError(t, err)

	assert.Len(t, anim.Image, 5)
	assert.Equal(t, 0, anim.LoopCount)
	for _, d := range anim.Delay {
		assert.Equal(t, 20, d)
	}
	bounds := anim.Image[0].Bounds()
	assert.Equal(t, 60+2*usecase.DefaultPadding, bounds.Dx())
	assert.Equal(t, 30+2*usecase.DefaultPadding, bounds.Dy())

	assert.Equal(t, []string{"test_dummy_neutral_gif.gif"}, dirEntries(t, f.output))
}

func TestSynthesize_DefaultOptionsGiveFiftyFrames(t *testing.T) {
	opts := usecase.AnimationOptions{}
	assert.Equal(t, 50, opts.FrameCount())
	assert.Equal(t, 10, opts.DelayCentis())
}

func TestSynthesize_RejectsSourceOutsideIntake(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	outside := filepath.Join(t.TempDir(), "outside_image.png")
	writePNG(t, outside, 60, 30, color.NRGBA{B: 255, A: 255})

	out, err := f.synth.Synthesize(context.Background(), outside, "test_outside_dir", usecase.AnimationOptions{DurationSeconds: 1, FPS: 2})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, domain.KindSynthesis, domain.KindOf(err))
	assert.Empty(t, dirEntries(t, f.output))
}

func TestSynthesize_RejectsTraversalIntoIntakeSibling(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	sneaky := filepath.Join(f.intake, "..", "escape.png")
	writePNG(t, sneaky, 10, 10, color.White)

	_, err := f.synth.Synthesize(context.Background(), sneaky, "escape", usecase.AnimationOptions{DurationSeconds: 1, FPS: 1})
	require.Error(t, err)
	assert.Empty(t, dirEntries(t, f.output))
}

func TestSynthesize_RejectsNonImage(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	src := filepath.Join(f.intake, "not_an_image.txt")
	require.NoError(t, os.WriteFile(src, []byte("This is not an image."), 0o644))

	out, err := f.synth.Synthesize(context.Background(), src, "test_non_image", usecase.AnimationOptions{})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, domain.KindSynthesis, domain.KindOf(err))
	assert.Empty(t, dirEntries(t, f.output))
}

func TestSynthesize_MissingSource(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})

	_, err := f.synth.Synthesize(context.Background(), filepath.Join(f.intake, "ghost.png"), "ghost", usecase.AnimationOptions{})
	require.Error(t, err)
	assert.Empty(t, dirEntries(t, f.output))
}

func TestSynthesize_OverwritesSameBaseName(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	src := filepath.Join(f.intake, "same.png")
	writePNG(t, src, 10, 10, color.White)
	opts := usecase.AnimationOptions{DurationSeconds: 1, FPS: 1}

	first, err := f.synth.Synthesize(context.Background(), src, "same", opts)
	require.NoError(t, err)
	second, err := f.synth.Synthesize(context.Background(), src, "same", opts)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, []string{"same.gif"}, dirEntries(t, f.output))
}

// Tiles in the bottom padding band are never covered by text or the source image.
func bottomBandTiles(frame *image.RGBA, srcH int) [][2]int {
	var tiles [][2]int
	y0 := srcH + usecase.DefaultPadding + usecase.DefaultTileSize // first full tile row below the image
	y0 -= y0 % usecase.DefaultTileSize
	for y := y0; y+usecase.DefaultTileSize <= frame.Rect.Dy(); y += usecase.DefaultTileSize {
		for x := 0; x+usecase.DefaultTileSize <= frame.Rect.Dx(); x += usecase.DefaultTileSize {
			tiles = append(tiles, [2]int{x / usecase.DefaultTileSize, y / usecase.DefaultTileSize})
		}
	}
	return tiles
}

func TestRenderRGBA_AHighGivesGreenATiles(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 37000, AssetB: 120})
	src := image.NewNRGBA(image.Rect(0, 0, 40, 40))

	frames, err := f.synth.RenderRGBA(context.Background(), src, f.prices.GetPrices(), 3)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	bTilesNotGreen := 0
	for _, frame := range frames {
		for _, tile := range bottomBandTiles(frame, 40) {
			gx, gy := tile[0], tile[1]
			c := frame.RGBAAt(gx*usecase.DefaultTileSize+5, gy*usecase.DefaultTileSize+5)
			assert.Equal(t, uint8(0xff), c.A)
			if usecase.InfluencedByA(gx, gy) {
				assert.GreaterOrEqual(t, int(c.G), 150, "tile %d,%d", gx, gy)
				assert.Less(t, int(c.R), 100, "tile %d,%d", gx, gy)
				assert.Less(t, int(c.B), 100, "tile %d,%d", gx, gy)
			} else if !(c.G >= 150 && c.R < 100 && c.B < 100) {
				bTilesNotGreen++
			}
		}
	}
	// B is neutral, so its tiles are uniform random and mostly outside the green band.
	assert.Positive(t, bTilesNotGreen)
}

func TestRenderRGBA_FramesDifferAndAreReproducible(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	snap := f.prices.GetPrices()

	a, err := f.synth.RenderRGBA(context.Background(), src, snap, 2)
	require.NoError(t, err)
	b, err := f.synth.RenderRGBA(context.Background(), src, snap, 2)
	require.NoError(t, err)

	assert.Equal(t, a[0].Pix, b[0].Pix)
	assert.NotEqual(t, a[0].Pix, a[1].Pix)
}

func TestRenderRGBA_CompositesSourceCentred(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			if x < 5 {
				src.Set(x, y, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
			}
		}
	}

	frames, err := f.synth.RenderRGBA(context.Background(), src, f.prices.GetPrices(), 1)
	require.NoError(t, err)
	frame := frames[0]

	p := usecase.DefaultPadding
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, frame.RGBAAt(p, p))
	// Transparent source pixels leave the background untouched and opaque.
	bg := frame.RGBAAt(p+7, p+7)
	assert.Equal(t, uint8(255), bg.A)
	assert.NotEqual(t, color.RGBA{}, bg)
}

func TestRenderRGBA_CancelledContext(t *testing.T) {
	f := newSynthFixture(t, domain.PriceSnapshot{AssetA: 35000, AssetB: 120})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.synth.RenderRGBA(ctx, image.NewNRGBA(image.Rect(0, 0, 4, 4)), f.prices.GetPrices(), 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPriceLabel(t *testing.T) {
	assert.Equal(t, "BTC: $35250.00", usecase.PriceLabel("BTC", 35250))
	assert.Equal(t, "SOL: $121.50", usecase.PriceLabel("SOL", 121.5))
	assert.Equal(t, "A: $0.13", usecase.PriceLabel("A", 0.125))
}

func TestLoadFace_FallsBackToEmbedded(t *testing.T) {
	face, name := usecase.LoadFace(18, usecase.FontChain([]string{"/nonexistent/font.ttf"}), zap.NewNop())
	require.NotNil(t, face)
	assert.Equal(t, "embedded:gomonobold", name)
}

func TestLoadFace_BitmapWhenChainEmpty(t *testing.T) {
	face, name := usecase.LoadFace(18, nil, zap.NewNop())
	require.NotNil(t, face)
	assert.Equal(t, "basicfont:7x13", name)
}

// tileInBand reports whether c lies in the colour band the sentiment paints
// an A- or B-influenced tile with. Neutral assets accept any colour.
func tileInBand(c color.RGBA, s domain.Sentiment, influencedByA bool) bool {
	hi := func(v uint8) bool { return v >= 150 }
	lo := func(v uint8) bool { return v < 100 }
	switch {
	case influencedByA && s.AHigh:
		return hi(c.G) && lo(c.R) && lo(c.B)
	case influencedByA && s.ALow:
		return hi(c.R) && lo(c.G) && lo(c.B)
	case !influencedByA && s.BHigh:
		return hi(c.B) && lo(c.R) && lo(c.G)
	case !influencedByA && s.BLow:
		return hi(c.R) && hi(c.G) && c.B < 50
	}
	return true
}

func TestSynthesize_EncodedGIFKeepsTileBands(t *testing.T) {
	tests := []struct {
		name string
		snap domain.PriceSnapshot
	}{
		{"A High", domain.PriceSnapshot{AssetA: 37000, AssetB: 120}},
		{"A Low B Low", domain.PriceSnapshot{AssetA: 33000, AssetB: 100}},
		{"A Low B High", domain.PriceSnapshot{AssetA: 33000, AssetB: 140}},
		{"Neutral A B Low", domain.PriceSnapshot{AssetA: 35000, AssetB: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSynthFixture(t, tt.snap)
			src := filepath.Join(f.intake, "clear.png")
			writePNG(t, src, 160, 160, color.NRGBA{})

			out, err := f.synth.Synthesize(context.Background(), src, "clear", usecase.AnimationOptions{DurationSeconds: 1, FPS: 5})
			require.NoError(t, err)

			fh, err := os.Open(out.Path)
			require.NoError(t, err)
			defer fh.Close()
			anim, err := gif.DecodeAll(fh)
			require.NoError(t, err)
			require.Len(t, anim.Image, 5)

			painted, err := f.synth.RenderRGBA(context.Background(), image.NewNRGBA(image.Rect(0, 0, 160, 160)), tt.snap, 5)
			require.NoError(t, err)

			sentiment := usecase.NewSentimentEvaluator(domain.DefaultThresholds()).Evaluate(tt.snap)
			ts := usecase.DefaultTileSize
			// Rows from the padding edge down are clear of the price text.
			firstRow := usecase.DefaultPadding / ts
			for i, frame := range anim.Image {
				rows := frame.Bounds().Dy() / ts
				cols := frame.Bounds().Dx() / ts
				for gy := firstRow; gy < rows; gy++ {
					for gx := 0; gx < cols; gx++ {
						x, y := gx*ts+ts/2, gy*ts+ts/2
						got := color.RGBAModel.Convert(frame.At(x, y)).(color.RGBA)
						require.Equal(t, painted[i].RGBAAt(x, y), got, "frame %d tile %d,%d", i, gx, gy)
						require.True(t, tileInBand(got, sentiment, usecase.InfluencedByA(gx, gy)),
							"frame %d tile %d,%d colour %v out of band", i, gx, gy, got)
					}
				}
			}
		})
	}
}
