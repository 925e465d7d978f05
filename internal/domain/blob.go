package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter stores opaque objects in blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// SettlementRecord is the archived snapshot of one market resolution:
// the summary plus the final state of every bet.
type SettlementRecord struct {
	Market     Market            `json:"market"`
	Summary    SettlementSummary `json:"summary"`
	Bets       []Bet             `json:"bets"`
	ArchivedAt time.Time         `json:"archived_at"`
}
