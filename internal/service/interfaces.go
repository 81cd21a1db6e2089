package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"
	"time"

	"github.com/iliyamo/field-interventions/internal/model"
	"github.com/iliyamo/field-interventions/internal/queue"
	"github.com/iliyamo/field-interventions/internal/repository"
)

// Records is the persistent record collaborator.  LockIfDraft must be an
// atomic compare-and-set on (id, owner, status = DRAFT) and return
// repository.ErrNotDraft when it does not apply.
type Records interface {
	Insert(ctx context.Context, rec *model.Intervention) error
	Get(ctx context.Context, id string, owner *uint64) (model.Intervention, error)
	LockIfDraft(ctx context.Context, id string, ownerID uint64, signatureRef string, signedAt time.Time) error
	Search(ctx context.Context, q repository.InterventionQuery) ([]model.Summary, int64, error)
}

// Blobs stores signature images.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// EventPublisher delivers lifecycle events.  Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.InterventionEvent) error
}
