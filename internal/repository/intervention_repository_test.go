package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/field-interventions/internal/model"
)

func newMock(t *testing.T) (*InterventionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewInterventionRepo(db), mock
}

var fullColumns = []string{"id", "owner_id", "client_name", "client_email", "line_items", "tax_rate_percent",
	"amount_excl_tax", "tax_amount", "amount_incl_tax", "status", "signature_ref", "signed_at", "created_at"}

func TestInsert(t *testing.T) {
	repo, mock := newMock(t)
	email := "ops@acme.test"
	rec := &model.Intervention{
		ID:             "a1",
		OwnerID:        7,
		ClientName:     "Acme",
		ClientEmail:    &email,
		LineItems:      []model.LineItem{{Label: "Diagnostic", Quantity: 1, UnitPrice: 50}},
		TaxRatePercent: 20,
		Totals:         model.Totals{AmountExclTax: 50, TaxAmount: 10, AmountInclTax: 60},
		Status:         model.StatusDraft,
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO interventions")).
		WithArgs("a1", int64(7), "Acme", email,
			[]byte(`[{"label":"Diagnostic","quantity":1,"unit_price":50}]`),
			20.0, 50.0, 10.0, 60.0, "DRAFT", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	owner := uint64(7)

	mock.ExpectQuery(`FROM interventions WHERE id = \? AND owner_id = \? LIMIT 1`).
		WithArgs("a1", int64(7)).
		WillReturnRows(sqlmock.NewRows(fullColumns).AddRow(
			"a1", int64(7), "Acme", nil, []byte(`[{"label":"Part","quantity":2,"unit_price":12.5}]`), 20.0,
			25.0, 5.0, 30.0, "DRAFT", nil, nil, created))

	rec, err := repo.Get(context.Background(), "a1", &owner)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ClientEmail != nil || rec.SignatureRef != nil || rec.SignedAt != nil {
		t.Fatalf("expected nil optional fields, got %+v", rec)
	}
	if len(rec.LineItems) != 1 || rec.LineItems[0].Quantity != 2 {
		t.Fatalf("line items not decoded: %+v", rec.LineItems)
	}
	if rec.Status != model.StatusDraft || rec.AmountInclTax != 30 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetUnscopedNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM interventions WHERE id = \? LIMIT 1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(fullColumns))

	_, err := repo.Get(context.Background(), "missing", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLockIfDraft(t *testing.T) {
	lockSQL := regexp.QuoteMeta(`UPDATE interventions SET status = 'LOCKED', signature_ref = ?, signed_at = ? WHERE id = ? AND owner_id = ? AND status = 'DRAFT'`)
	signedAt := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		execErr  error
		want     error
	}{
		{name: "won the swap", affected: 1},
		{name: "already locked", affected: 0, want: ErrNotDraft},
		{name: "driver failure", execErr: errors.New("connection reset"), want: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			exp := mock.ExpectExec(lockSQL).WithArgs("7/a1-1.png", sqlmock.AnyArg(), "a1", int64(7))
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			err := repo.LockIfDraft(context.Background(), "a1", 7, "7/a1-1.png", signedAt)
			switch {
			case tt.want == nil && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.want == ErrNotDraft && !errors.Is(err, ErrNotDraft):
				t.Fatalf("want ErrNotDraft, got %v", err)
			case tt.execErr != nil && (err == nil || errors.Is(err, ErrNotDraft)):
				t.Fatalf("want driver error, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestSearchTechScopeWithFilters(t *testing.T) {
	repo, mock := newMock(t)
	owner := uint64(7)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM interventions WHERE owner_id = ? AND status = ? AND (LOWER(client_name) LIKE ? OR LOWER(COALESCE(client_email, '')) LIKE ?)`)).
		WithArgs(int64(7), "LOCKED", `%ac\_me%`, `%ac\_me%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?`)).
		WithArgs(int64(7), "LOCKED", `%ac\_me%`, `%ac\_me%`, int64(5), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "client_name", "client_email",
			"amount_excl_tax", "tax_amount", "amount_incl_tax", "status", "signed_at", "created_at"}).
			AddRow("a1", int64(7), "AC_ME", "x@ac_me.test", 75.0, 15.0, 90.0, "LOCKED", created, created))

	items, total, err := repo.Search(context.Background(), InterventionQuery{
		Owner: &owner, Text: " AC_me ", Status: model.StatusLocked, Page: 3, PageSize: 5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 11 || len(items) != 1 {
		t.Fatalf("got total=%d items=%d", total, len(items))
	}
	if items[0].SignedAt == nil || items[0].ClientEmail == nil {
		t.Fatalf("optional fields not scanned: %+v", items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSearchEmptySkipsPageQuery(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM interventions WHERE 1=1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.Search(context.Background(), InterventionQuery{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("want empty non-nil page, got %v (%d)", items, total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
