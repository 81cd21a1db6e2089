package queue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFormatAuditLine(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	got := FormatAuditLine(InterventionEvent{
		Type:           EventLocked,
		InterventionID: "a1",
		OwnerID:        7,
		ClientName:     `Acme "North"`,
		Status:         "LOCKED",
		AmountInclTax:  90,
		SignatureRef:   "7/a1-1.png",
		SignedAt:       &at,
		OccurredAt:     at,
	})
	want := `[2026-03-01T10:30:00Z] intervention.locked | intervention_id=a1 | owner_id=7 | client="Acme \"North\"" | status=LOCKED | total_incl_tax=90.00 | signature_ref=7/a1-1.png | signed_at=2026-03-01T10:30:00Z` + "\n"
	if got != want {
		t.Fatalf("line mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestHandleMessageAppends(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{LogDir: filepath.Join(dir, "audit"), Log: zerolog.Nop()}

	bodies := []string{
		`{"type":"intervention.created","intervention_id":"a1","owner_id":7,"client_name":"Acme","status":"DRAFT","amount_incl_tax":90,"occurred_at":"2026-03-01T10:00:00Z"}`,
		`{"type":"intervention.locked","intervention_id":"a1","owner_id":7,"client_name":"Acme","status":"LOCKED","amount_incl_tax":90,"occurred_at":"2026-03-01T10:05:00Z"}`,
	}
	for _, b := range bodies {
		if err := c.HandleMessage([]byte(b)); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "audit", AuditLogFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "intervention.locked") {
		t.Fatalf("unexpected log content:\n%s", data)
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	c := &Consumer{LogDir: t.TempDir(), Log: zerolog.Nop()}
	for _, body := range []string{"not json", `{"type":""}`} {
		if err := c.HandleMessage([]byte(body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		t.Fatal("sleep should return false on cancelled context")
	}
}
