package usecase

import (
	"cmp"
	"image"
	"image/color"
	"image/draw"
	"slices"

	"github.com/ericpauley/go-quantize/quantize"
)

const (
	paletteSize = 256
	// Colours covering at least half a tile keep an exact palette entry.
	minReservedPixels = DefaultTileSize * DefaultTileSize / 2
	// Entries always left to the median cut for text edges and the source image.
	minFreeSlots = 16
)

type colorCount struct {
	c color.RGBA
	n int
}

// Palettize converts a frame into a paletted image whose palette is built
// from the frame's own colours.
func Palettize(frame *image.RGBA) *image.Paletted {
	p := image.NewPaletted(frame.Rect, FramePalette(frame))
	draw.Draw(p, p.Rect, frame, frame.Rect.Min, draw.Src)
	return p
}

// FramePalette returns the frame's colours exactly when there are at most
// 256 of them. Otherwise the most common flat colours (painted tiles) are
// reserved exactly, most frequent first, and the remaining entries are
// chosen by median cut over the pixels that are left.
func FramePalette(frame *image.RGBA) color.Palette {
	hist := make(map[color.RGBA]int)
	b := frame.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[frame.RGBAAt(x, y)]++
		}
	}

	counts := make([]colorCount, 0, len(hist))
	for c, n := range hist {
		counts = append(counts, colorCount{c: c, n: n})
	}
	slices.SortFunc(counts, func(a, b colorCount) int {
		if a.n != b.n {
			return cmp.Compare(b.n, a.n)
		}
		return cmp.Compare(packRGBA(a.c), packRGBA(b.c))
	})

	pal := make(color.Palette, 0, paletteSize)
	if len(counts) <= paletteSize {
		for _, cc := range counts {
			pal = append(pal, cc.c)
		}
		return pal
	}

	reserved := make(map[color.RGBA]bool)
	for _, cc := range counts {
		if cc.n < minReservedPixels || len(pal) == paletteSize-minFreeSlots {
			break
		}
		pal = append(pal, cc.c)
		reserved[cc.c] = true
	}

	q := quantize.MedianCutQuantizer{
		Aggregation: quantize.Mode,
		Weighting: func(_ image.Image, x, y int) uint32 {
			if reserved[frame.RGBAAt(x, y)] {
				return 0
			}
			return 1
		},
	}
	return q.Quantize(pal, frame)
}

func packRGBA(c color.RGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}
