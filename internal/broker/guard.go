package broker

import (
	"fmt"

	"github.com/petermattis/goid"

	"voxel-assets/internal/logging"
)

// Guard remembers the goroutine that created it. Only that goroutine may
// build GPU resources. Callers driving a real GPU context should also pin it
// with runtime.LockOSThread.
type Guard struct {
	owner int64
}

// NewGuard makes the calling goroutine the owner.
func NewGuard() Guard {
	return Guard{owner: goid.Get()}
}

// IsOwner reports whether the caller is the owner goroutine.
func (g Guard) IsOwner() bool {
	return goid.Get() == g.owner
}

// Check returns nil on the owner goroutine. Elsewhere it logs the violation
// and returns ErrNotOwner; binaries built with the assetdebug tag panic
// instead.
func (g Guard) Check(op string) error {
	if g.IsOwner() {
		return nil
	}
	err := fmt.Errorf("%w: %s", ErrNotOwner, op)
	if panicOnViolation {
		panic(err)
	}
	logging.Logger().Error("broker: owner-only operation from another goroutine", "op", op, "owner", g.owner, "caller", goid.Get())
	return err
}
