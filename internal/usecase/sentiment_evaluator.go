package usecase

import (
	"image/color"

	"github.com/vitos/sentiment_mint/internal/domain"
)

type SentimentEvaluator struct {
	thresholds domain.Thresholds
}

func NewSentimentEvaluator(thresholds domain.Thresholds) *SentimentEvaluator {
	return &SentimentEvaluator{thresholds: thresholds}
}

func (e *SentimentEvaluator) Thresholds() domain.Thresholds {
	return e.thresholds
}

// Evaluate crosses both prices against their bands. Equality is neutral.
func (e *SentimentEvaluator) Evaluate(snap domain.PriceSnapshot) domain.Sentiment {
	return domain.Sentiment{
		AHigh: snap.AssetA > e.thresholds.HighA,
		ALow:  snap.AssetA < e.thresholds.LowA,
		BHigh: snap.AssetB > e.thresholds.HighB,
		BLow:  snap.AssetB < e.thresholds.LowB,
	}
}

// InfluencedByA reports whether the tile at grid position (gx, gy) follows asset A.
// Tiles alternate in a checkerboard; the rest follow asset B.
func InfluencedByA(gx, gy int) bool {
	return (gx%2 == 0) != (gy%2 == 0)
}

func between(rnd domain.RandSource, lo, hi int) uint8 {
	return uint8(lo + rnd.IntN(hi-lo))
}

// TileColor picks the opaque fill for one tile. A uniform random colour is
// always drawn first and then replaced when the governing asset is out of its
// neutral band:
//
//	A high: green   A low: red
//	B high: blue    B low: yellow
func TileColor(gx, gy int, s domain.Sentiment, rnd domain.RandSource) color.RGBA {
	r, g, b := between(rnd, 0, 256), between(rnd, 0, 256), between(rnd, 0, 256)

	if InfluencedByA(gx, gy) {
		switch {
		case s.AHigh:
			g, r, b = between(rnd, 150, 256), between(rnd, 0, 100), between(rnd, 0, 100)
		case s.ALow:
			r, g, b = between(rnd, 150, 256), between(rnd, 0, 100), between(rnd, 0, 100)
		}
	} else {
		switch {
		case s.BHigh:
			b, r, g = between(rnd, 150, 256), between(rnd, 0, 100), between(rnd, 0, 100)
		case s.BLow:
			r, g, b = between(rnd, 150, 256), between(rnd, 150, 256), between(rnd, 0, 50)
		}
	}

	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
