// Package pos holds the operator flows of the terminal (sales, expenses and
// user administration) on top of the session manager and the caja engine.
package pos

import (
	"ventafacil/internal/apierror"
	"ventafacil/internal/permission"
)

// Permissions answers permission checks; *session.Manager implements it.
type Permissions interface {
	HasPermission(k permission.Key) bool
}

// Guard gates flows on the current session's permissions.
type Guard struct {
	perms Permissions
}

func NewGuard(p Permissions) Guard { return Guard{perms: p} }

// Require fails with Forbidden unless the current session holds k.
func (g Guard) Require(k permission.Key) error {
	if g.perms == nil || !g.perms.HasPermission(k) {
		return apierror.E(apierror.Forbidden, "pos.guard", "Permisos insuficientes", nil)
	}
	return nil
}
