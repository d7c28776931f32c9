package store

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/ledger/internal/canon"
	"github.com/roach88/ledger/internal/ledger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// recordPayload is the event log encoding of a record.
// Byte fields travel as base64 and the category by name.
type recordPayload struct {
	ID          uint64          `json:"id"`
	Title       []byte          `json:"title"`
	Description []byte          `json:"description"`
	Amount      uint64          `json:"amount"`
	Date        []byte          `json:"date"`
	Category    ledger.Category `json:"category"`
}

// marshalChange encodes the event payload and digest for a change.
// Create and update carry the post-state record; delete carries {}.
func marshalChange(c ledger.Change) (payload []byte, digest string, err error) {
	if c.Op == ledger.OpDelete {
		digest, err = tombstoneDigest(c.ID)
		if err != nil {
			return nil, "", err
		}
		return []byte("{}"), digest, nil
	}

	r := c.Record
	payload, err = json.Marshal(recordPayload{
		ID:          uint64(r.ID),
		Title:       r.Title,
		Description: r.Description,
		Amount:      r.Amount,
		Date:        r.Date,
		Category:    r.Category,
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal record %d: %w", r.ID, err)
	}

	digest, err = ledger.RecordDigest(r)
	if err != nil {
		return nil, "", err
	}
	return payload, digest, nil
}

// unmarshalRecord decodes a create or update payload.
func unmarshalRecord(data []byte) (ledger.Record, error) {
	var p recordPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return ledger.Record{}, fmt.Errorf("unmarshal record payload: %w", err)
	}
	return ledger.NewRecord(ledger.RecordID(p.ID), ledger.Fields{
		Title:       p.Title,
		Description: p.Description,
		Amount:      p.Amount,
		Date:        p.Date,
		Category:    p.Category,
	}), nil
}

func tombstoneDigest(id ledger.RecordID) (string, error) {
	return canon.Digest(canon.DomainRecord, map[string]any{
		"id":      uint64(id),
		"deleted": true,
	})
}

// toDB and fromDB bit-cast uint64 values for SQL drivers, which reject
// uint64 with the high bit set.
func toDB(v uint64) int64   { return int64(v) }
func fromDB(v int64) uint64 { return uint64(v) }
