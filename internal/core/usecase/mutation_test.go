package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

type invalidatorFake struct {
	mu   sync.Mutex
	keys []synccache.Key
}

func (f *invalidatorFake) Invalidate(key synccache.Key) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
}

type recorderFake struct {
	mu       sync.Mutex
	statuses []string
}

func (f *recorderFake) RecordMutation(_, status string, _ time.Duration) {
	f.mu.Lock()
	f.statuses = append(f.statuses, status)
	f.mu.Unlock()
}

func TestSubmitRejectsConcurrentMutationOnSameForm(t *testing.T) {
	c := NewMutationCoordinator(&invalidatorFake{}, discardLogger(), nil)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Submit(context.Background(), c, Mutation[int]{
			Form: "site",
			Call: func(context.Context) (int, error) {
				close(started)
				<-release
				return 1, nil
			},
		})
		done <- err
	}()
	<-started

	if !c.Pending("site") {
		t.Fatal("expected form to be pending")
	}

	calls := 0
	_, err := Submit(context.Background(), c, Mutation[int]{
		Form: "site",
		Call: func(context.Context) (int, error) {
			calls++
			return 2, nil
		},
	})
	if !errors.Is(err, domain.ErrMutationInFlight) {
		t.Fatalf("expected ErrMutationInFlight, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("rejected mutation reached the network %d times", calls)
	}

	// Other forms are independent.
	if _, err := Submit(context.Background(), c, Mutation[int]{
		Form: "pages/1",
		Call: func(context.Context) (int, error) { return 3, nil },
	}); err != nil {
		t.Fatalf("independent form rejected: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first mutation failed: %v", err)
	}
	if c.Pending("site") {
		t.Fatal("guard not released after completion")
	}
}

func TestSubmitSuccessInvalidatesResetsAndContinues(t *testing.T) {
	inv := &invalidatorFake{}
	rec := &recorderFake{}
	c := NewMutationCoordinator(inv, discardLogger(), rec)

	var order []string
	got, err := Submit(context.Background(), c, Mutation[string]{
		Form:        "imports/4",
		Name:        "create_import",
		Call:        func(context.Context) (string, error) { return "job", nil },
		Invalidates: []synccache.Key{synccache.ImportsKey(4)},
		Reset:       func() { order = append(order, "reset") },
		OnSuccess:   func(v string) { order = append(order, "continue:"+v) },
	})
	if err != nil || got != "job" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	if len(inv.keys) != 1 || inv.keys[0] != synccache.ImportsKey(4) {
		t.Fatalf("unexpected invalidations %v", inv.keys)
	}
	if len(order) != 2 || order[0] != "reset" || order[1] != "continue:job" {
		t.Fatalf("unexpected success sequence %v", order)
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != "success" {
		t.Fatalf("unexpected recorded statuses %v", rec.statuses)
	}
}

func TestSubmitFailureKeepsFormAndSkipsInvalidation(t *testing.T) {
	inv := &invalidatorFake{}
	c := NewMutationCoordinator(inv, discardLogger(), nil)

	errServer := errors.New("500 internal server error")
	reset := false
	_, err := Submit(context.Background(), c, Mutation[int]{
		Form:        "site",
		Call:        func(context.Context) (int, error) { return 0, errServer },
		Invalidates: []synccache.Key{synccache.SitesKey()},
		Reset:       func() { reset = true },
		OnSuccess:   func(int) { t.Fatal("continuation called on failure") },
	})
	if !errors.Is(err, errServer) {
		t.Fatalf("expected server error verbatim, got %v", err)
	}
	if reset {
		t.Fatal("form reset after failure")
	}
	if len(inv.keys) != 0 {
		t.Fatalf("invalidated after failure: %v", inv.keys)
	}
	if c.Pending("site") {
		t.Fatal("guard not released after failure")
	}
}

func TestSubmitValidationFailureNeverCalls(t *testing.T) {
	c := NewMutationCoordinator(&invalidatorFake{}, discardLogger(), nil)

	called := false
	_, err := Submit(context.Background(), c, Mutation[int]{
		Form:     "site",
		Validate: func() error { return domain.ErrInvalidInput },
		Call: func(context.Context) (int, error) {
			called = true
			return 0, nil
		},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if called {
		t.Fatal("validation failure reached the network")
	}
}
