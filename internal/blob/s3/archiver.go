package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictgate/predictgate/internal/domain"
)

// multipartThreshold is the payload size above which the journal trail is
// uploaded via the multipart manager instead of a single PutObject.
const multipartThreshold = 4 * 1024 * 1024

// ArchivePrefix is the key prefix under which resolved markets are stored.
const ArchivePrefix = "archive/markets/"

// resolvedArchive is the stored document for one resolved market.
type resolvedArchive struct {
	Market     domain.Market `json:"market"`
	ArchivedAt time.Time     `json:"archivedAt"`
	ChainID    uint64        `json:"chainId"`
}

// Archiver implements domain.Archiver. A resolved market is written as a
// JSON document, with its journal trail alongside as JSONL. Archived rows
// are never deleted here; cold storage is additive.
type Archiver struct {
	writer  domain.BlobWriter
	chainID func() uint64
	logger  *slog.Logger
}

// NewArchiver creates an Archiver. chainID reports the chain the archived
// market lives on and is read at archive time.
func NewArchiver(writer domain.BlobWriter, chainID func() uint64, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:  writer,
		chainID: chainID,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveResolved uploads the market's final state and its journal entries.
func (a *Archiver) ArchiveResolved(ctx context.Context, market domain.Market, entries []domain.JournalEntry) error {
	chainID := a.chainID()

	doc, err := json.Marshal(resolvedArchive{
		Market:     market,
		ArchivedAt: time.Now().UTC(),
		ChainID:    chainID,
	})
	if err != nil {
		return fmt.Errorf("s3blob: marshal archive for market %s: %w", market.ID, err)
	}

	marketPath := fmt.Sprintf("%s%d/%s.json", ArchivePrefix, chainID, market.ID)
	if err := a.writer.Put(ctx, marketPath, bytes.NewReader(doc), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive market %s: %w", market.ID, err)
	}

	if len(entries) > 0 {
		buf, err := marshalJSONL(entries)
		if err != nil {
			return fmt.Errorf("s3blob: marshal journal for market %s: %w", market.ID, err)
		}

		journalPath := fmt.Sprintf("archive/journal/%d/%s.jsonl", chainID, market.ID)
		if len(buf) > multipartThreshold {
			err = a.writer.PutMultipart(ctx, journalPath, bytes.NewReader(buf), 0)
		} else {
			err = a.writer.Put(ctx, journalPath, bytes.NewReader(buf), "application/x-ndjson")
		}
		if err != nil {
			return fmt.Errorf("s3blob: archive journal for market %s: %w", market.ID, err)
		}
	}

	a.logger.Info("market archived",
		slog.String("market_id", market.ID),
		slog.Uint64("chain_id", chainID),
		slog.Int("journal_entries", len(entries)),
	)
	return nil
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
