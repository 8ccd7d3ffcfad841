package alignment

import (
	"context"
	"sync"
	"time"
)

// Resolved is a displayable URL for an image reference.
type Resolved struct {
	URL string `json:"url"`
	// Expires is when URL should be re-resolved. Zero means never.
	Expires time.Time `json:"-"`
	// Release frees a temporary local handle behind URL. Nil when there is
	// nothing to free.
	Release func() `json:"-"`
}

func (r Resolved) release() {
	if r.Release != nil {
		r.Release()
	}
}

// ResolveFunc turns an image reference into a displayable URL.
type ResolveFunc func(ctx context.Context, ref string) (Resolved, error)

// LatestResolver runs resolutions so that only the most recently requested
// one is ever applied. A newer request cancels the context of the one in
// flight; a superseded result is released and dropped. The applied
// handle is released when it is replaced or on Close.
//
// Requests are ordered by Begin, so callers that must agree with some
// other state (the session's image ref) call Begin while holding the lock
// that guards it and Await after releasing it.
type LatestResolver struct {
	resolve ResolveFunc

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current Resolved
}

// Pending is a resolution reserved by Begin.
type Pending struct {
	l      *LatestResolver
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	ref    string
}

// NewLatestResolver wraps fn.
func NewLatestResolver(fn ResolveFunc) *LatestResolver {
	return &LatestResolver{resolve: fn}
}

// Begin reserves the next generation for ref and cancels any request in
// flight. Nothing is resolved until Await.
func (l *LatestResolver) Begin(ctx context.Context, ref string) *Pending {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	return &Pending{l: l, ctx: ctx, cancel: cancel, gen: l.gen, ref: ref}
}

// Await resolves the reserved ref. applied is false when a later Begin
// superseded this one, in which case the result must be ignored.
func (p *Pending) Await() (res Resolved, applied bool, err error) {
	defer p.cancel()
	l := p.l

	res, err = l.resolve(p.ctx, p.ref)

	l.mu.Lock()
	defer l.mu.Unlock()
	if p.gen != l.gen {
		res.release()
		return Resolved{}, false, nil
	}
	l.cancel = nil
	if err != nil {
		return Resolved{}, true, err
	}
	if l.current.URL != res.URL {
		l.current.release()
	}
	l.current = res
	return res, true, nil
}

// Resolve is Begin followed by Await.
func (l *LatestResolver) Resolve(ctx context.Context, ref string) (Resolved, bool, error) {
	return l.Begin(ctx, ref).Await()
}

// Stale reports whether the applied URL has expired at now and no newer
// resolution is already in flight.
func (l *LatestResolver) Stale(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil || l.current.Expires.IsZero() {
		return false
	}
	return !now.Before(l.current.Expires)
}

// Current returns the applied resolution.
func (l *LatestResolver) Current() Resolved {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Close cancels any in-flight resolution and releases the applied handle.
func (l *LatestResolver) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.current.release()
	l.current = Resolved{}
}
