package auth

import (
	"context"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/server/models"
)

// Capability names a permission check evaluated by Authorize.
type Capability int

const (
	// CapabilityAuthenticated allows any verified caller.
	CapabilityAuthenticated Capability = iota + 1

	// CapabilitySelfOrAdmin allows admins and the owner of the target record.
	CapabilitySelfOrAdmin

	// CapabilityAdmin allows admins only.
	CapabilityAdmin
)

func (c Capability) String() string {
	switch c {
	case CapabilityAuthenticated:
		return "authenticated"
	case CapabilitySelfOrAdmin:
		return "self-or-admin"
	case CapabilityAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Authorize decides whether caller may act on targetID (0 when the operation
// has no target). A nil caller is ErrAuthenticationRequired; a caller without
// the capability is ErrForbidden. Unknown capabilities deny.
func Authorize(caller *Identity, capability Capability, targetID int64) error {
	if caller == nil {
		return common.ErrAuthenticationRequired
	}

	switch capability {
	case CapabilityAuthenticated:
		return nil
	case CapabilityAdmin:
		if caller.Role == models.RoleAdmin {
			return nil
		}
	case CapabilitySelfOrAdmin:
		if caller.Role == models.RoleAdmin || (targetID > 0 && caller.UserID == targetID) {
			return nil
		}
	}

	return common.ErrForbidden
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying the verified caller.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the caller stored by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return nil
	}
	return &id
}
