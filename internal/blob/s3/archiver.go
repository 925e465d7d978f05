package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/clawarena/arena/internal/domain"
)

// SettlementArchiver persists settlement records as JSON objects in blob
// storage, one object per resolved market. The archive is write-once:
// re-archiving a market overwrites the object with identical content, so
// a retried resolution is harmless.
type SettlementArchiver struct {
	writer domain.BlobWriter
}

// NewSettlementArchiver creates a SettlementArchiver over the given writer.
func NewSettlementArchiver(writer domain.BlobWriter) *SettlementArchiver {
	return &SettlementArchiver{writer: writer}
}

// Archive uploads the settlement record to settlements/<marketID>.json.
func (a *SettlementArchiver) Archive(ctx context.Context, rec domain.SettlementRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("s3blob: marshal settlement record: %w", err)
	}

	path := fmt.Sprintf("settlements/%s.json", rec.Market.ID)
	if err := a.writer.Put(ctx, path, &buf, "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive settlement %s: %w", rec.Market.ID, err)
	}
	return nil
}
