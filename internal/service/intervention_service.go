// Package service implements the intervention record store: creation with
// authoritative totals, the guarded DRAFT -> LOCKED signing transition and
// scoped listing.  Every operation takes the caller explicitly and consults
// the access policy before touching storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/field-interventions/internal/blobstore"
	"github.com/iliyamo/field-interventions/internal/model"
	"github.com/iliyamo/field-interventions/internal/policy"
	"github.com/iliyamo/field-interventions/internal/queue"
	"github.com/iliyamo/field-interventions/internal/repository"
	"github.com/iliyamo/field-interventions/internal/signature"
	"github.com/iliyamo/field-interventions/internal/totals"
)

// List pagination bounds.
const (
	DefaultPageSize = 10
	MinPageSize     = 5
	MaxPageSize     = 50
)

// DefaultTaxRatePercent applies when neither the request nor the options
// name a rate.
const DefaultTaxRatePercent = 20.0

// CreateInput is the payload of a create action.  An empty ClientEmail
// means no email.  A nil TaxRatePercent means the configured default.
type CreateInput struct {
	ClientName     string           `json:"client_name" validate:"required,min=2,max=200"`
	ClientEmail    string           `json:"client_email" validate:"omitempty,email,max=254"`
	LineItems      []model.LineItem `json:"line_items" validate:"required,min=1,max=200,dive"`
	TaxRatePercent *float64         `json:"tax_rate_percent" validate:"omitempty,gte=0,lte=100"`
}

// PreviewInput is the payload of a live totals computation.
type PreviewInput struct {
	LineItems      []model.LineItem `json:"line_items" validate:"required,min=1,max=200,dive"`
	TaxRatePercent *float64         `json:"tax_rate_percent" validate:"omitempty,gte=0,lte=100"`
}

// SignatureInput is a signature in one of three shapes: raw PNG bytes, a
// PNG data URL, or captured strokes to be rendered.  The first non-empty
// one wins in that order.
type SignatureInput struct {
	PNG     []byte             `json:"-"`
	DataURL string             `json:"signature,omitempty"`
	Strokes []signature.Stroke `json:"strokes,omitempty"`
}

// Empty reports whether no signature was supplied at all.
func (s SignatureInput) Empty() bool {
	return len(s.PNG) == 0 && strings.TrimSpace(s.DataURL) == "" && len(s.Strokes) == 0
}

// Bytes returns the PNG bytes of the signature.
func (s SignatureInput) Bytes() ([]byte, error) {
	switch {
	case len(s.PNG) > 0:
		return s.PNG, nil
	case strings.TrimSpace(s.DataURL) != "":
		return signature.DecodeDataURL(s.DataURL)
	case len(s.Strokes) > 0:
		return signature.Encode(s.Strokes, signature.Options{})
	}
	return nil, signature.ErrEmpty
}

// ListInput holds list filters as received from the caller.  Status is
// ALL, DRAFT, READY or LOCKED (case-insensitive, empty means ALL).  OwnerID
// narrows an administrator's list to one technician and is ignored for
// technicians, who always see only their own records.
type ListInput struct {
	Query    string
	Status   string
	Page     int
	PageSize int
	OwnerID  *uint64
}

// Page is one page of list results.
type Page struct {
	Items      []model.Summary `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// Options tunes an InterventionService.  Nil fields pick defaults.
type Options struct {
	DefaultTaxRatePercent *float64
	Now                   func() time.Time
	NewID                 func() string
}

type InterventionService struct {
	records  Records
	blobs    Blobs
	events   EventPublisher
	log      zerolog.Logger
	validate *validator.Validate

	defaultTaxRate float64
	now            func() time.Time
	newID          func() string
}

// NewInterventionService wires the store.  events may be nil to disable
// lifecycle events.
func NewInterventionService(records Records, blobs Blobs, events EventPublisher, log zerolog.Logger, opts Options) *InterventionService {
	s := &InterventionService{
		records:        records,
		blobs:          blobs,
		events:         events,
		log:            log.With().Str("component", "interventions").Logger(),
		validate:       newValidator(),
		defaultTaxRate: DefaultTaxRatePercent,
		now:            opts.Now,
		newID:          opts.NewID,
	}
	if opts.DefaultTaxRatePercent != nil {
		s.defaultTaxRate = *opts.DefaultTaxRatePercent
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Preview computes totals for a form without persisting anything.
func (s *InterventionService) Preview(in PreviewInput) (model.Totals, error) {
	if err := s.validate.Struct(in); err != nil {
		return model.Totals{}, s.invalid(err)
	}
	return s.computeTotals(in.LineItems, s.taxRate(in.TaxRatePercent))
}

// Create persists a new DRAFT record owned by the caller.  Totals are
// computed here once and stored as the authoritative amounts.
func (s *InterventionService) Create(ctx context.Context, caller policy.Caller, in CreateInput) (model.Intervention, error) {
	switch policy.CreateDecision(caller) {
	case policy.Unauthenticated:
		return model.Intervention{}, ErrUnauthenticated
	case policy.Forbidden:
		return model.Intervention{}, ErrForbidden
	}

	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientEmail = strings.ToLower(strings.TrimSpace(in.ClientEmail))
	in.LineItems = append([]model.LineItem(nil), in.LineItems...)
	for i := range in.LineItems {
		in.LineItems[i].Label = strings.TrimSpace(in.LineItems[i].Label)
	}
	if err := s.validate.Struct(in); err != nil {
		return model.Intervention{}, s.invalid(err)
	}

	rate := s.taxRate(in.TaxRatePercent)
	t, err := s.computeTotals(in.LineItems, rate)
	if err != nil {
		return model.Intervention{}, err
	}

	rec := model.Intervention{
		ID:             s.newID(),
		OwnerID:        caller.ID,
		ClientName:     in.ClientName,
		LineItems:      in.LineItems,
		TaxRatePercent: rate,
		Totals:         t,
		Status:         model.StatusDraft,
		CreatedAt:      s.now().UTC().Truncate(time.Microsecond),
	}
	if in.ClientEmail != "" {
		email := in.ClientEmail
		rec.ClientEmail = &email
	}

	if err := s.records.Insert(ctx, &rec); err != nil {
		s.log.Error().Err(err).Uint64("owner_id", caller.ID).Msg("insert intervention failed")
		return model.Intervention{}, storageError("insert", err)
	}
	s.log.Info().Str("intervention_id", rec.ID).Uint64("owner_id", rec.OwnerID).
		Float64("amount_incl_tax", rec.AmountInclTax).Msg("intervention created")
	s.publish(ctx, queue.EventCreated, rec)
	return rec, nil
}

// CreateAndSign creates a record and then signs it through Sign.  When
// signing fails the DRAFT record is returned together with the signing
// error; the caller may retry Sign later.
func (s *InterventionService) CreateAndSign(ctx context.Context, caller policy.Caller, in CreateInput, sig SignatureInput) (model.Intervention, error) {
	rec, err := s.Create(ctx, caller, in)
	if err != nil {
		return model.Intervention{}, err
	}
	signed, err := s.Sign(ctx, caller, rec.ID, sig)
	if err != nil {
		return rec, err
	}
	return signed, nil
}

// Sign locks a DRAFT record with the caller's signature.  The image is
// stored first; the status flip is a single conditional update, so of two
// racing signers exactly one wins and the other gets ErrAlreadyLocked.  If
// the flip fails after the image was stored, the record stays DRAFT and
// the orphaned image is harmless.
func (s *InterventionService) Sign(ctx context.Context, caller policy.Caller, id string, sig SignatureInput) (model.Intervention, error) {
	if !caller.Authenticated() {
		return model.Intervention{}, ErrUnauthenticated
	}
	rec, err := s.load(ctx, caller, id)
	if err != nil {
		return model.Intervention{}, err
	}
	if policy.WriteDecision(caller, rec) != policy.Allowed {
		return model.Intervention{}, ErrForbidden
	}
	if rec.Status != model.StatusDraft {
		return model.Intervention{}, ErrAlreadyLocked
	}

	png, err := sig.Bytes()
	if err == nil {
		err = signature.Validate(png)
	}
	if err != nil {
		return model.Intervention{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	signedAt := s.now().UTC().Truncate(time.Microsecond)
	ref, err := s.blobs.Put(ctx, blobstore.Key(rec.OwnerID, rec.ID, signedAt), png)
	if err != nil {
		s.log.Error().Err(err).Str("intervention_id", rec.ID).Msg("store signature failed")
		return model.Intervention{}, storageError("store signature", err)
	}

	if err := s.records.LockIfDraft(ctx, rec.ID, rec.OwnerID, ref, signedAt); err != nil {
		if errors.Is(err, repository.ErrNotDraft) {
			return model.Intervention{}, s.lostLock(ctx, caller, rec.ID)
		}
		s.log.Error().Err(err).Str("intervention_id", rec.ID).Str("signature_ref", ref).
			Msg("lock intervention failed, record left in DRAFT")
		return model.Intervention{}, storageError("lock", err)
	}

	rec.Status = model.StatusLocked
	rec.SignatureRef = &ref
	rec.SignedAt = &signedAt
	s.log.Info().Str("intervention_id", rec.ID).Uint64("owner_id", rec.OwnerID).Msg("intervention locked")
	s.publish(ctx, queue.EventLocked, rec)
	return rec, nil
}

// lostLock classifies a conditional update that matched no row.
func (s *InterventionService) lostLock(ctx context.Context, caller policy.Caller, id string) error {
	cur, err := s.records.Get(ctx, id, policy.ReadScope(caller))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case err != nil:
		return storageError("reload", err)
	case cur.Locked():
		return ErrAlreadyLocked
	}
	// Still DRAFT yet the guarded update missed: treat as a transient failure.
	return storageError("lock", repository.ErrNotDraft)
}

// Get returns one record the caller may read.
func (s *InterventionService) Get(ctx context.Context, caller policy.Caller, id string) (model.Intervention, error) {
	if !caller.Authenticated() {
		return model.Intervention{}, ErrUnauthenticated
	}
	return s.load(ctx, caller, id)
}

// Signature returns the stored PNG of a locked record.
func (s *InterventionService) Signature(ctx context.Context, caller policy.Caller, id string) ([]byte, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	rec, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if rec.SignatureRef == nil {
		return nil, fmt.Errorf("%w: no signature", ErrNotFound)
	}
	b, err := s.blobs.Get(ctx, *rec.SignatureRef)
	if errors.Is(err, blobstore.ErrNotFound) {
		s.log.Error().Str("intervention_id", rec.ID).Str("signature_ref", *rec.SignatureRef).Msg("signature blob missing")
		return nil, fmt.Errorf("%w: signature image", ErrNotFound)
	}
	if err != nil {
		return nil, storageError("load signature", err)
	}
	return b, nil
}

// List returns one page of summaries visible to the caller, newest first.
func (s *InterventionService) List(ctx context.Context, caller policy.Caller, in ListInput) (Page, error) {
	if !caller.Authenticated() {
		return Page{}, ErrUnauthenticated
	}
	status, err := parseStatusFilter(in.Status)
	if err != nil {
		return Page{}, err
	}
	page, size := normalizePage(in.Page, in.PageSize)

	scope := policy.ReadScope(caller)
	if scope == nil && in.OwnerID != nil {
		scope = in.OwnerID
	}
	items, total, err := s.records.Search(ctx, repository.InterventionQuery{
		Owner:    scope,
		Text:     in.Query,
		Status:   status,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		s.log.Error().Err(err).Uint64("caller_id", caller.ID).Msg("search interventions failed")
		return Page{}, storageError("search", err)
	}

	visible := items[:0]
	for _, it := range items {
		if !caller.IsAdmin() && it.OwnerID != caller.ID {
			s.log.Error().Str("intervention_id", it.ID).Uint64("caller_id", caller.ID).
				Msg("search returned a record outside the caller scope")
			continue
		}
		visible = append(visible, it)
	}

	return Page{
		Items:      visible,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	}, nil
}

// load reads a record under the caller's row scope and re-checks the read
// policy on the result.
func (s *InterventionService) load(ctx context.Context, caller policy.Caller, id string) (model.Intervention, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Intervention{}, ErrNotFound
	}
	rec, err := s.records.Get(ctx, id, policy.ReadScope(caller))
	if errors.Is(err, repository.ErrNotFound) {
		return model.Intervention{}, ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("intervention_id", id).Msg("load intervention failed")
		return model.Intervention{}, storageError("load", err)
	}
	if policy.ReadDecision(caller, rec) != policy.Allowed {
		return model.Intervention{}, ErrForbidden
	}
	return rec, nil
}

func (s *InterventionService) taxRate(override *float64) float64 {
	if override != nil {
		return *override
	}
	return s.defaultTaxRate
}

func (s *InterventionService) computeTotals(items []model.LineItem, rate float64) (model.Totals, error) {
	t, err := totals.Compute(items, rate)
	if err == nil {
		return t, nil
	}
	verr := &ValidationError{Err: ErrInvalidAmount, Fields: map[string]string{}}
	var le *totals.LineError
	switch {
	case errors.As(err, &le):
		verr.Fields[fmt.Sprintf("line_items[%d].%s", le.Index, le.Field)] = le.Reason
	case errors.Is(err, totals.ErrNoLineItems):
		verr.Fields["line_items"] = "must contain at least 1 item(s)"
	case errors.Is(err, totals.ErrInvalidTaxRate):
		verr.Fields["tax_rate_percent"] = "must be between 0 and 100 with at most two decimals"
	case errors.Is(err, totals.ErrAmountTooLarge):
		verr.Fields["line_items"] = fmt.Sprintf("total must not exceed %.2f", totals.MaxAmount)
	case errors.Is(err, totals.ErrNonPositiveTotal):
		verr.Fields["line_items"] = "amount excluding tax must be at least 0.01"
	default:
		verr.Fields["line_items"] = err.Error()
	}
	return model.Totals{}, verr
}

func (s *InterventionService) invalid(err error) error {
	fields := validationFields(err)
	if fields == nil {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	return &ValidationError{Fields: fields}
}

func (s *InterventionService) publish(ctx context.Context, typ string, rec model.Intervention) {
	if s.events == nil {
		return
	}
	ev := queue.InterventionEvent{
		Type:           typ,
		InterventionID: rec.ID,
		OwnerID:        rec.OwnerID,
		ClientName:     rec.ClientName,
		Status:         string(rec.Status),
		AmountInclTax:  rec.AmountInclTax,
		SignedAt:       rec.SignedAt,
		OccurredAt:     s.now().UTC(),
	}
	if rec.SignatureRef != nil {
		ev.SignatureRef = *rec.SignatureRef
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", typ).Str("intervention_id", rec.ID).Msg("publish event failed")
	}
}

func parseStatusFilter(raw string) (model.Status, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" || v == "ALL" {
		return "", nil
	}
	st := model.Status(v)
	if !st.Valid() {
		return "", fieldError("status", "must be one of ALL, DRAFT, READY, LOCKED")
	}
	return st, nil
}

// normalizePage clamps paging input: page below 1 becomes 1, a missing page
// size takes the default and any other size is clamped to [5, 50].
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size < MinPageSize:
		size = MinPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}
