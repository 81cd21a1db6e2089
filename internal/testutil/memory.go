// Package testutil provides in-memory collaborators for tests.  They keep
// the contracts of the MySQL implementations, including the conditional
// lock, so concurrency properties can be exercised without a database.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/field-interventions/internal/blobstore"
	"github.com/iliyamo/field-interventions/internal/model"
	"github.com/iliyamo/field-interventions/internal/repository"
)

type storedRecord struct {
	seq int64
	rec model.Intervention
}

// Records is an in-memory intervention table.
type Records struct {
	mu   sync.Mutex
	seq  int64
	rows map[string]*storedRecord

	// LockErr, when set, fails every LockIfDraft without changing state.
	LockErr error
}

func NewRecords() *Records { return &Records{rows: map[string]*storedRecord{}} }

func (r *Records) Insert(_ context.Context, rec *model.Intervention) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[rec.ID]; ok {
		return errors.New("duplicate id")
	}
	r.seq++
	r.rows[rec.ID] = &storedRecord{seq: r.seq, rec: clone(*rec)}
	return nil
}

func (r *Records) Get(_ context.Context, id string, owner *uint64) (model.Intervention, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || (owner != nil && row.rec.OwnerID != *owner) {
		return model.Intervention{}, repository.ErrNotFound
	}
	return clone(row.rec), nil
}

func (r *Records) LockIfDraft(_ context.Context, id string, ownerID uint64, ref string, signedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LockErr != nil {
		return r.LockErr
	}
	row, ok := r.rows[id]
	if !ok || row.rec.OwnerID != ownerID || row.rec.Status != model.StatusDraft {
		return repository.ErrNotDraft
	}
	at := signedAt.UTC()
	row.rec.Status = model.StatusLocked
	row.rec.SignatureRef = &ref
	row.rec.SignedAt = &at
	return nil
}

func (r *Records) Search(_ context.Context, q repository.InterventionQuery) ([]model.Summary, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text := strings.ToLower(strings.TrimSpace(q.Text))
	matched := make([]*storedRecord, 0, len(r.rows))
	for _, row := range r.rows {
		rec := row.rec
		if q.Owner != nil && rec.OwnerID != *q.Owner {
			continue
		}
		if q.Status != "" && rec.Status != q.Status {
			continue
		}
		if text != "" {
			email := ""
			if rec.ClientEmail != nil {
				email = *rec.ClientEmail
			}
			if !strings.Contains(strings.ToLower(rec.ClientName), text) && !strings.Contains(strings.ToLower(email), text) {
				continue
			}
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.PageSize
	if start < 0 || start >= len(matched) {
		return []model.Summary{}, total, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]model.Summary, 0, end-start)
	for _, row := range matched[start:end] {
		out = append(out, row.rec.Summarize())
	}
	return out, total, nil
}

// Put seeds a row as-is, bypassing the service.
func (r *Records) Put(rec model.Intervention) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.rows[rec.ID] = &storedRecord{seq: r.seq, rec: clone(rec)}
}

func clone(rec model.Intervention) model.Intervention {
	rec.LineItems = append([]model.LineItem(nil), rec.LineItems...)
	if rec.ClientEmail != nil {
		v := *rec.ClientEmail
		rec.ClientEmail = &v
	}
	if rec.SignatureRef != nil {
		v := *rec.SignatureRef
		rec.SignatureRef = &v
	}
	if rec.SignedAt != nil {
		v := *rec.SignedAt
		rec.SignedAt = &v
	}
	return rec
}

// Blobs is an in-memory blob store.
type Blobs struct {
	mu     sync.Mutex
	data   map[string][]byte
	PutErr error
}

func NewBlobs() *Blobs { return &Blobs{data: map[string][]byte{}} }

func (b *Blobs) Put(_ context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PutErr != nil {
		return "", b.PutErr
	}
	b.data[key] = append([]byte(nil), data...)
	return key, nil
}

func (b *Blobs) Get(_ context.Context, ref string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[ref]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return append([]byte(nil), d...), nil
}

// Len returns the number of stored blobs.
func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
