package alignment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/plotperfect/plotmap/internal/core/alignment"
)

type releaseCounter struct {
	mu    sync.Mutex
	count map[string]int
}

func (r *releaseCounter) handle(ref string) alignment.Resolved {
	return alignment.Resolved{
		URL: "blob:" + ref,
		Release: func() {
			r.mu.Lock()
			r.count[ref]++
			r.mu.Unlock()
		},
	}
}

func (r *releaseCounter) get(ref string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count[ref]
}

func TestLatestResolver_SupersededResultIsDropped(t *testing.T) {
	released := &releaseCounter{count: map[string]int{}}
	started := make(chan struct{})
	unblock := make(chan struct{})
	var slowCtxErr error

	l := alignment.NewLatestResolver(func(ctx context.Context, ref string) (alignment.Resolved, error) {
		if ref == "slow" {
			close(started)
			<-unblock
			slowCtxErr = ctx.Err()
		}
		return released.handle(ref), nil
	})

	type outcome struct {
		res     alignment.Resolved
		applied bool
	}
	done := make(chan outcome)
	go func() {
		res, applied, _ := l.Resolve(context.Background(), "slow")
		done <- outcome{res, applied}
	}()
	<-started

	res, applied, err := l.Resolve(context.Background(), "fast")
	if err != nil || !applied {
		t.Fatalf("expected fast resolution applied, got applied=%v err=%v", applied, err)
	}
	if res.URL != "blob:fast" {
		t.Errorf("expected blob:fast, got %s", res.URL)
	}

	close(unblock)
	slow := <-done

	if slow.applied {
		t.Error("expected slow resolution to be superseded")
	}
	if slowCtxErr == nil {
		t.Error("expected superseded resolution to be cancelled")
	}
	if released.get("slow") != 1 {
		t.Errorf("expected superseded handle released once, got %d", released.get("slow"))
	}
	if got := l.Current().URL; got != "blob:fast" {
		t.Errorf("expected current blob:fast, got %s", got)
	}
}

func TestLatestResolver_ReleasesReplacedHandle(t *testing.T) {
	released := &releaseCounter{count: map[string]int{}}
	l := alignment.NewLatestResolver(func(ctx context.Context, ref string) (alignment.Resolved, error) {
		return released.handle(ref), nil
	})
	ctx := context.Background()

	if _, _, err := l.Resolve(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := l.Resolve(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if released.get("a") != 1 {
		t.Errorf("expected a released, got %d", released.get("a"))
	}
	if released.get("b") != 0 {
		t.Errorf("expected b held, got %d", released.get("b"))
	}

	l.Close()
	if released.get("b") != 1 {
		t.Errorf("expected b released on close, got %d", released.get("b"))
	}
	if l.Current().URL != "" {
		t.Error("expected no current handle after close")
	}
}

func TestLatestResolver_ErrorKeepsCurrent(t *testing.T) {
	boom := errors.New("boom")
	l := alignment.NewLatestResolver(func(ctx context.Context, ref string) (alignment.Resolved, error) {
		if ref == "bad" {
			return alignment.Resolved{}, boom
		}
		return alignment.Resolved{URL: "https://cdn/" + ref}, nil
	})
	ctx := context.Background()

	if _, _, err := l.Resolve(ctx, "good.png"); err != nil {
		t.Fatal(err)
	}
	_, applied, err := l.Resolve(ctx, "bad")
	if !errors.Is(err, boom) || !applied {
		t.Fatalf("expected applied error, got applied=%v err=%v", applied, err)
	}
	if got := l.Current().URL; got != "https://cdn/good.png" {
		t.Errorf("expected previous resolution kept, got %s", got)
	}
}

func TestLatestResolver_BeginOrderDecides(t *testing.T) {
	l := alignment.NewLatestResolver(func(ctx context.Context, ref string) (alignment.Resolved, error) {
		return alignment.Resolved{URL: "https://cdn/" + ref}, nil
	})
	ctx := context.Background()

	tests := []struct {
		name       string
		awaitFirst string
	}{
		{"older finishes last", "b"},
		{"older finishes first", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := map[string]*alignment.Pending{
				"a": l.Begin(ctx, "a"),
				"b": l.Begin(ctx, "b"),
			}
			order := []string{"a", "b"}
			if tt.awaitFirst == "b" {
				order = []string{"b", "a"}
			}
			for _, ref := range order {
				_, applied, err := pending[ref].Await()
				if err != nil {
					t.Fatal(err)
				}
				if applied != (ref == "b") {
					t.Errorf("%s: expected applied=%v, got %v", ref, ref == "b", applied)
				}
			}
			if got := l.Current().URL; got != "https://cdn/b" {
				t.Errorf("expected the later Begin to win, got %s", got)
			}
		})
	}
}

func TestLatestResolver_Stale(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := map[string]time.Time{
		"signed": now.Add(time.Minute),
		"direct": {},
	}
	l := alignment.NewLatestResolver(func(ctx context.Context, ref string) (alignment.Resolved, error) {
		return alignment.Resolved{URL: "https://cdn/" + ref, Expires: expires[ref]}, nil
	})
	ctx := context.Background()

	if l.Stale(now) {
		t.Error("expected nothing resolved to be fresh")
	}
	if _, _, err := l.Resolve(ctx, "signed"); err != nil {
		t.Fatal(err)
	}
	if l.Stale(now.Add(30 * time.Second)) {
		t.Error("expected fresh before expiry")
	}
	if !l.Stale(now.Add(time.Minute)) {
		t.Error("expected stale at expiry")
	}

	p := l.Begin(ctx, "signed")
	if l.Stale(now.Add(time.Hour)) {
		t.Error("expected no staleness while a resolution is in flight")
	}
	if _, _, err := p.Await(); err != nil {
		t.Fatal(err)
	}

	if _, _, err := l.Resolve(ctx, "direct"); err != nil {
		t.Fatal(err)
	}
	if l.Stale(now.Add(24 * time.Hour)) {
		t.Error("expected a URL without expiry to stay fresh")
	}
}
