package domain

// PriceSnapshot holds the two asset prices read at the start of a mint.
type PriceSnapshot struct {
	AssetA float64 `json:"asset_a"`
	AssetB float64 `json:"asset_b"`
}

// DefaultPrices are the mock quotes used until a live feed is wired in
// (A = BTC/USD, B = SOL/USD).
func DefaultPrices() PriceSnapshot {
	return PriceSnapshot{AssetA: 35250, AssetB: 121.5}
}

// Thresholds are the fixed bands prices are crossed against.
type Thresholds struct {
	HighA float64 `yaml:"high_a" json:"high_a"`
	LowA  float64 `yaml:"low_a" json:"low_a"`
	HighB float64 `yaml:"high_b" json:"high_b"`
	LowB  float64 `yaml:"low_b" json:"low_b"`
}

// DefaultThresholds returns the production bands (A = BTC/USD, B = SOL/USD).
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighA: 36000,
		LowA:  34000,
		HighB: 130,
		LowB:  110,
	}
}

// Sentiment is derived per synthesis and never stored.
// High and low are mutually exclusive while High > Low; both false means neutral.
type Sentiment struct {
	AHigh bool `json:"a_high"`
	ALow  bool `json:"a_low"`
	BHigh bool `json:"b_high"`
	BLow  bool `json:"b_low"`
}
