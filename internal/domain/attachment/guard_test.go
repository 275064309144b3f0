package attachment_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/ownerdir"
)

func TestGuardProjectManagerAlwaysAllowed(t *testing.T) {
	dir := ownerdir.NewStaticDirectory()
	guard := domain.NewGuard(dir, zerolog.Nop())

	pm := domain.Principal{ID: "u-pm", Role: domain.RolePM}
	owners := []domain.OwnerRef{
		{Type: domain.OwnerTask, ID: "t1", CustomerID: "c1"},
		{Type: domain.OwnerSubtask, ID: "st1", CustomerID: "c2"},
		{Type: domain.OwnerTask, ID: "unknown", CustomerID: ""},
	}
	for _, owner := range owners {
		if err := guard.Authorize(context.Background(), pm, owner); err != nil {
			t.Fatalf("pm denied on %s %s: %v", owner.Type, owner.ID, err)
		}
	}
}

func TestGuardEmployeeRequiresAssignment(t *testing.T) {
	dir := ownerdir.NewStaticDirectory()
	dir.Put(domain.OwnerTask, "t1", "c1", "u-alice", "u-bob")
	guard := domain.NewGuard(dir, zerolog.Nop())
	owner := domain.OwnerRef{Type: domain.OwnerTask, ID: "t1", CustomerID: "c1"}

	assigned := domain.Principal{ID: "u-alice", Role: domain.RoleEmployee}
	if err := guard.Authorize(context.Background(), assigned, owner); err != nil {
		t.Fatalf("assigned employee denied: %v", err)
	}

	unassigned := domain.Principal{ID: "u-carol", Role: domain.RoleEmployee}
	err := guard.Authorize(context.Background(), unassigned, owner)
	if domain.AsAuthorizationError(err) == nil {
		t.Fatalf("expected authorization error for unassigned employee, got %v", err)
	}
}

func TestGuardCustomerScopedToOwnRecords(t *testing.T) {
	dir := ownerdir.NewStaticDirectory()
	guard := domain.NewGuard(dir, zerolog.Nop())
	owner := domain.OwnerRef{Type: domain.OwnerTask, ID: "t1", CustomerID: "c1"}

	tests := []struct {
		name      string
		principal domain.Principal
		allowed   bool
	}{
		{"own record", domain.Principal{ID: "u1", Role: domain.RoleCustomer, CustomerID: "c1"}, true},
		{"other customer", domain.Principal{ID: "u2", Role: domain.RoleCustomer, CustomerID: "c2"}, false},
		{"empty customer id", domain.Principal{ID: "u3", Role: domain.RoleCustomer}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Authorize(context.Background(), tt.principal, owner)
			if tt.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tt.allowed && domain.AsAuthorizationError(err) == nil {
				t.Fatalf("expected authorization error, got %v", err)
			}
		})
	}
}

func TestGuardUnknownRoleDenied(t *testing.T) {
	guard := domain.NewGuard(ownerdir.NewStaticDirectory(), zerolog.Nop())
	p := domain.Principal{ID: "u1", Role: domain.Role("auditor")}
	owner := domain.OwnerRef{Type: domain.OwnerTask, ID: "t1"}

	err := guard.Authorize(context.Background(), p, owner)
	aerr := domain.AsAuthorizationError(err)
	if aerr == nil {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if aerr.Reason != "unknown role" {
		t.Fatalf("unexpected reason %q", aerr.Reason)
	}
}

func TestGuardEmployeeDirectoryErrorPropagates(t *testing.T) {
	// An unknown owner surfaces as ErrOwnerNotFound, not a denial.
	guard := domain.NewGuard(ownerdir.NewStaticDirectory(), zerolog.Nop())
	p := domain.Principal{ID: "u1", Role: domain.RoleEmployee}
	owner := domain.OwnerRef{Type: domain.OwnerTask, ID: "missing"}

	err := guard.Authorize(context.Background(), p, owner)
	if err != domain.ErrOwnerNotFound {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
}
