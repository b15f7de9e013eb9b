package lock

import (
	"context"
	"errors"
)

var ErrAlreadyLocked = errors.New("lock already held")

// Locker guards a mutually exclusive operation across processes. Acquire
// returns a release func, or ErrAlreadyLocked when another holder exists.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Noop never blocks. Used when the engine runs in a single process and
// the application-level duplicate-run check is enough.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
