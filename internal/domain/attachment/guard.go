package attachment

import (
	"context"

	"github.com/rs/zerolog"
)

// rolePolicy is the authorization predicate for one role. The set of
// roles is closed, so each variant carries its own rule instead of
// spreading conditionals across call sites.
type rolePolicy interface {
	authorize(ctx context.Context, p Principal, owner OwnerRef) error
}

// Guard decides allow/deny for a principal against an owning record.
// It runs before any storage or registry read on downloads and before
// an upload is accepted.
type Guard struct {
	policies map[Role]rolePolicy
	log      zerolog.Logger
}

func NewGuard(dir OwnerDirectory, log zerolog.Logger) *Guard {
	return &Guard{
		policies: map[Role]rolePolicy{
			RolePM:       pmPolicy{},
			RoleEmployee: employeePolicy{dir: dir},
			RoleCustomer: customerPolicy{},
		},
		log: log.With().Str("component", "access-guard").Logger(),
	}
}

// Authorize returns nil on allow and an *AuthorizationError on deny.
// Denials are logged with principal and owner ids for audit.
func (g *Guard) Authorize(ctx context.Context, p Principal, owner OwnerRef) error {
	policy, ok := g.policies[p.Role]
	if !ok {
		return g.deny(p, owner, "unknown role")
	}
	if err := policy.authorize(ctx, p, owner); err != nil {
		if aerr := AsAuthorizationError(err); aerr != nil {
			g.log.Warn().
				Str("principal_id", aerr.PrincipalID).
				Str("owner_type", string(aerr.Owner.Type)).
				Str("owner_id", aerr.Owner.ID).
				Str("reason", aerr.Reason).
				Msg("access denied")
		}
		return err
	}
	return nil
}

func (g *Guard) deny(p Principal, owner OwnerRef, reason string) error {
	err := &AuthorizationError{PrincipalID: p.ID, Owner: owner, Reason: reason}
	g.log.Warn().
		Str("principal_id", p.ID).
		Str("owner_type", string(owner.Type)).
		Str("owner_id", owner.ID).
		Str("reason", reason).
		Msg("access denied")
	return err
}

// pmPolicy: project managers are unrestricted.
type pmPolicy struct{}

func (pmPolicy) authorize(ctx context.Context, p Principal, owner OwnerRef) error {
	return nil
}

// employeePolicy: allowed only when assigned to the owning record.
type employeePolicy struct {
	dir OwnerDirectory
}

func (e employeePolicy) authorize(ctx context.Context, p Principal, owner OwnerRef) error {
	assignees, err := e.dir.GetAssignees(ctx, owner.Type, owner.ID)
	if err != nil {
		return err
	}
	for _, assignee := range assignees {
		if assignee == p.ID {
			return nil
		}
	}
	return &AuthorizationError{PrincipalID: p.ID, Owner: owner, Reason: "not assigned to owner"}
}

// customerPolicy: allowed only on the customer's own records.
type customerPolicy struct{}

func (customerPolicy) authorize(ctx context.Context, p Principal, owner OwnerRef) error {
	if p.CustomerID != "" && p.CustomerID == owner.CustomerID {
		return nil
	}
	return &AuthorizationError{PrincipalID: p.ID, Owner: owner, Reason: "customer mismatch"}
}
