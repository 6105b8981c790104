package domain

import (
	"encoding/json"
	"time"
)

// Category is the position flavour a mint is tagged with.
type Category string

const (
	CategoryShort Category = "short"
	CategoryLong  Category = "long"
)

// ParseCategory returns the Category named by s. Only "short" and "long" are accepted.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryShort, CategoryLong:
		return Category(s), true
	}
	return "", false
}

// MintRecord is the registry entry created for every successfully generated animation.
type MintRecord struct {
	ID               string    `json:"id"`
	GifURL           string    `json:"gif_url"`
	OriginalImageURL string    `json:"original_image_url"`
	Category         Category  `json:"nft_type"`
	CreatedAt        Timestamp `json:"creation_timestamp"`
	PriceA           float64   `json:"minting_price_btc"`
	PriceB           float64   `json:"minting_price_sol"`

	// Filesystem locations, not exposed over the API.
	ArtifactPath string `json:"-"`
	SourcePath   string `json:"-"`
}

// Timestamp marshals as ISO-8601 UTC with microsecond precision and a trailing Z.
type Timestamp struct {
	time.Time
}

const timestampLayout = "2006-01-02T15:04:05.000000Z"

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) String() string {
	return t.UTC().Format(timestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}
