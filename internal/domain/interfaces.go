package domain

import "context"

// PriceSource supplies the current asset prices. It has no failure mode.
type PriceSource interface {
	GetPrices() PriceSnapshot
}

// MintRepository is the append-only registry of mint records.
type MintRepository interface {
	Append(ctx context.Context, record *MintRecord) error
	ListAll(ctx context.Context) ([]*MintRecord, error)
}

// RandSource yields uniform integers in [0, n). Implementations need not be
// safe for concurrent use; synthesis asks for one per frame.
type RandSource interface {
	IntN(n int) int
}

// MintPublisher is notified after a record is appended.
type MintPublisher interface {
	Publish(record *MintRecord)
}
