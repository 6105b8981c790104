package usecase

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
)

// DefaultFontCandidates lists the TrueType files tried before the embedded face.
var DefaultFontCandidates = []string{
	"DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
}

// FontCandidate is one way of obtaining a face at a given size.
type FontCandidate struct {
	Name string
	Load func(size float64) (font.Face, error)
}

func fileFont(path string) FontCandidate {
	return FontCandidate{
		Name: path,
		Load: func(size float64) (font.Face, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return parseFace(data, size)
		},
	}
}

func embeddedFont() FontCandidate {
	return FontCandidate{
		Name: "embedded:gomonobold",
		Load: func(size float64) (font.Face, error) {
			return parseFace(gomonobold.TTF, size)
		},
	}
}

func parseFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// FontChain builds the ordered candidate list for the given file paths,
// always ending with the embedded Go Mono Bold face.
func FontChain(paths []string) []FontCandidate {
	chain := make([]FontCandidate, 0, len(paths)+1)
	for _, p := range paths {
		chain = append(chain, fileFont(p))
	}
	return append(chain, embeddedFont())
}

// LoadFace tries each candidate in order. If every candidate fails the
// built-in 7x13 bitmap face is returned, so resolution never fails.
func LoadFace(size float64, chain []FontCandidate, logger *zap.Logger) (font.Face, string) {
	for _, c := range chain {
		face, err := c.Load(size)
		if err == nil {
			return face, c.Name
		}
		logger.Debug("Font candidate unavailable", zap.String("font", c.Name), zap.Error(err))
	}
	logger.Warn("No scalable font found, using basic bitmap face; text will be small")
	return basicfont.Face7x13, "basicfont:7x13"
}
