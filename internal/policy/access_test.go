package policy

import (
	"testing"

	"github.com/iliyamo/field-interventions/internal/model"
)

func TestAccessMatrix(t *testing.T) {
	rec := model.Intervention{ID: "i-1", OwnerID: 7}
	cases := []struct {
		name      string
		caller    Caller
		read      Decision
		write     Decision
		canCreate Decision
	}{
		{name: "anonymous", caller: Caller{}, read: Unauthenticated, write: Unauthenticated, canCreate: Unauthenticated},
		{name: "unknown role", caller: Caller{ID: 7, Role: "OWNER"}, read: Unauthenticated, write: Unauthenticated, canCreate: Unauthenticated},
		{name: "owner tech", caller: Caller{ID: 7, Role: model.RoleTech}, read: Allowed, write: Allowed, canCreate: Allowed},
		{name: "other tech", caller: Caller{ID: 8, Role: model.RoleTech}, read: Forbidden, write: Forbidden, canCreate: Allowed},
		{name: "admin", caller: Caller{ID: 1, Role: model.RoleAdmin}, read: Allowed, write: Forbidden, canCreate: Forbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReadDecision(tc.caller, rec); got != tc.read {
				t.Errorf("read: expected %v, got %v", tc.read, got)
			}
			if got := WriteDecision(tc.caller, rec); got != tc.write {
				t.Errorf("write: expected %v, got %v", tc.write, got)
			}
			if got := CreateDecision(tc.caller); got != tc.canCreate {
				t.Errorf("create: expected %v, got %v", tc.canCreate, got)
			}
			if CanRead(tc.caller, rec) != (tc.read == Allowed) {
				t.Errorf("CanRead disagrees with ReadDecision")
			}
			if CanWrite(tc.caller, rec) != (tc.write == Allowed) {
				t.Errorf("CanWrite disagrees with WriteDecision")
			}
		})
	}
}

func TestReadScope(t *testing.T) {
	if s := ReadScope(Caller{ID: 1, Role: model.RoleAdmin}); s != nil {
		t.Fatalf("admin scope should be unrestricted, got %d", *s)
	}
	s := ReadScope(Caller{ID: 9, Role: model.RoleTech})
	if s == nil || *s != 9 {
		t.Fatalf("tech scope should be own id, got %v", s)
	}
}
