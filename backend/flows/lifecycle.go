package flows

import (
	"context"
	"errors"
	"sync"

	"bakustack/backend/inflight"
	"bakustack/backend/models"
	"bakustack/backend/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity answers who is viewing. *session.Accessor satisfies it.
type Identity interface {
	Current(ctx context.Context) (*models.Profile, error)
}

// Options carries the collaborators shared by every flow instance.
type Options struct {
	// Guard serialises mutating actions across flow instances, keyed per
	// (student, target). Nil keeps the per-instance guard only.
	Guard inflight.Guard
	Log   *zap.Logger
}

func (o Options) logger(component string) *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log.With(zap.String("component", component))
}

func (o Options) acquire(ctx context.Context, action string, studentID, targetID uuid.UUID) (func(), error) {
	if o.Guard == nil {
		return func() {}, nil
	}
	release, err := o.Guard.Acquire(ctx, action+":"+studentID.String()+":"+targetID.String())
	if errors.Is(err, inflight.ErrBusy) {
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, &WriteError{Op: action, Err: err}
	}
	return release, nil
}

// lifecycle tracks which load a flow instance is showing. Every Load bumps the
// generation; results computed for an older generation, or after Dispose,
// are dropped without touching state.
type lifecycle struct {
	mu       sync.Mutex
	gen      uint64
	disposed bool
}

// begin starts a new generation and runs reset under the lock.
func (l *lifecycle) begin(reset func()) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if !l.disposed {
		reset()
	}
	return l.gen
}

// snapshot returns the current generation for an action that must not
// outlive a reload. read runs under the lock.
func (l *lifecycle) snapshot(read func()) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return 0, ErrDisposed
	}
	read()
	return l.gen, nil
}

// commit applies a result if gen is still current. It reports whether the
// result was applied.
func (l *lifecycle) commit(gen uint64, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || gen != l.gen {
		return false
	}
	apply()
	return true
}

func (l *lifecycle) withLock(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// Dispose detaches the flow. Pending calls finish but their results are
// discarded.
func (l *lifecycle) Dispose() {
	l.mu.Lock()
	l.disposed = true
	l.mu.Unlock()
}

// singleFlight allows one pending invocation per action name.
type singleFlight struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func (s *singleFlight) enter(action string) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = make(map[string]struct{})
	}
	if _, busy := s.pending[action]; busy {
		return nil, false
	}
	s.pending[action] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.pending, action)
		s.mu.Unlock()
	}, true
}

func (s *singleFlight) busy(action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[action]
	return ok
}

// resolveViewer treats every identity failure as anonymous. Anything other
// than a plain anonymous answer is logged.
func resolveViewer(ctx context.Context, id Identity, log *zap.Logger) *models.Profile {
	if id == nil {
		return nil
	}
	profile, err := id.Current(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrAnonymous) {
			log.Warn("identity lookup failed, continuing as anonymous", zap.Error(err))
		}
		return nil
	}
	return profile
}
