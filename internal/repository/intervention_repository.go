package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/field-interventions/internal/model"
)

// InterventionRepo persists interventions in the `interventions` table.
// Every read takes an optional owner scope which is added to the WHERE
// clause, so a technician's query can never return another owner's row
// even if the caller above forgot to check.
type InterventionRepo struct {
	db *sql.DB
}

// NewInterventionRepo returns a repository bound to db.
func NewInterventionRepo(db *sql.DB) *InterventionRepo { return &InterventionRepo{db: db} }

// InterventionQuery holds list filters and pagination.  Owner nil means
// all owners.  Status empty means any status.  Page is 1-based.
type InterventionQuery struct {
	Owner    *uint64
	Text     string
	Status   model.Status
	Page     int
	PageSize int
}

const interventionColumns = `id, owner_id, client_name, client_email, line_items, tax_rate_percent,
	amount_excl_tax, tax_amount, amount_incl_tax, status, signature_ref, signed_at, created_at`

// Insert stores a new record.  ID, OwnerID, Status and CreatedAt must
// already be set by the caller.
func (r *InterventionRepo) Insert(ctx context.Context, rec *model.Intervention) error {
	items, err := json.Marshal(rec.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}
	const q = `INSERT INTO interventions
		(id, owner_id, client_name, client_email, line_items, tax_rate_percent,
		 amount_excl_tax, tax_amount, amount_incl_tax, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, rec.OwnerID, rec.ClientName, nullString(rec.ClientEmail), items, rec.TaxRatePercent,
		rec.AmountExclTax, rec.TaxAmount, rec.AmountInclTax, string(rec.Status), rec.CreatedAt.UTC(),
	)
	return err
}

// Get loads one record by id within owner scope.  It returns ErrNotFound
// when nothing matches.
func (r *InterventionRepo) Get(ctx context.Context, id string, owner *uint64) (model.Intervention, error) {
	q := `SELECT ` + interventionColumns + ` FROM interventions WHERE id = ?`
	args := []any{id}
	if owner != nil {
		q += ` AND owner_id = ?`
		args = append(args, *owner)
	}
	q += ` LIMIT 1`
	rec, err := scanIntervention(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Intervention{}, ErrNotFound
	}
	return rec, err
}

// LockIfDraft performs the DRAFT -> LOCKED transition as one conditional
// update keyed on id, owner and status.  It is the compare-and-swap that
// serialises concurrent signers: the loser sees zero affected rows and gets
// ErrNotDraft.  The signature reference and timestamp are written in the
// same statement as the status.
func (r *InterventionRepo) LockIfDraft(ctx context.Context, id string, ownerID uint64, signatureRef string, signedAt time.Time) error {
	const q = `UPDATE interventions
		SET status = 'LOCKED', signature_ref = ?, signed_at = ?
		WHERE id = ? AND owner_id = ? AND status = 'DRAFT'`
	res, err := r.db.ExecContext(ctx, q, signatureRef, signedAt.UTC(), id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotDraft
	}
	return nil
}

// Search returns one page of summaries and the size of the filtered set.
// Rows are ordered newest first; rows created in the same instant keep
// their insertion order through the auto-increment seq column.
func (r *InterventionRepo) Search(ctx context.Context, q InterventionQuery) ([]model.Summary, int64, error) {
	where := []string{}
	args := []any{}
	if q.Owner != nil {
		where = append(where, "owner_id = ?")
		args = append(args, *q.Owner)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		where = append(where, "(LOWER(client_name) LIKE ? OR LOWER(COALESCE(client_email, '')) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interventions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Summary{}, 0, nil
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	dataSQL := `SELECT id, owner_id, client_name, client_email,
			amount_excl_tax, tax_amount, amount_incl_tax, status, signed_at, created_at
		FROM interventions
		WHERE ` + cond + `
		ORDER BY created_at DESC, seq DESC
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Summary, 0, limit)
	for rows.Next() {
		var (
			s        model.Summary
			email    sql.NullString
			status   string
			signedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.ClientName, &email,
			&s.AmountExclTax, &s.TaxAmount, &s.AmountInclTax, &status, &signedAt, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		s.ClientEmail = stringPtr(email)
		s.Status = model.Status(status)
		s.SignedAt = timePtr(signedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntervention(row rowScanner) (model.Intervention, error) {
	var (
		rec      model.Intervention
		email    sql.NullString
		items    []byte
		status   string
		sigRef   sql.NullString
		signedAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.ClientName, &email, &items, &rec.TaxRatePercent,
		&rec.AmountExclTax, &rec.TaxAmount, &rec.AmountInclTax, &status, &sigRef, &signedAt, &rec.CreatedAt); err != nil {
		return model.Intervention{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &rec.LineItems); err != nil {
			return model.Intervention{}, fmt.Errorf("decode line items of %s: %w", rec.ID, err)
		}
	}
	rec.ClientEmail = stringPtr(email)
	rec.Status = model.Status(status)
	rec.SignatureRef = stringPtr(sigRef)
	rec.SignedAt = timePtr(signedAt)
	return rec, nil
}

// escapeLike escapes the LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
