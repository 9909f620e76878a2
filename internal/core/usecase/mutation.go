package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/directory-console/internal/core/domain"
	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// FormID names one logical form. Two forms with the same id never have
// mutations in flight at the same time.
type FormID string

func SiteFormID() FormID { return "site" }

func SiteEditFormID(siteID int64) FormID { return FormID(fmt.Sprintf("site/%d", siteID)) }

func ImportFormID(siteID int64) FormID { return FormID(fmt.Sprintf("imports/%d", siteID)) }

func PageFormID(siteID int64) FormID { return FormID(fmt.Sprintf("pages/%d", siteID)) }

func PromptFormID(siteID int64) FormID { return FormID(fmt.Sprintf("prompts/%d", siteID)) }

func GenerateFormID(siteID int64) FormID { return FormID(fmt.Sprintf("generate/%d", siteID)) }

// Invalidator is the cache surface the coordinator writes to.
type Invalidator interface {
	Invalidate(key synccache.Key)
}

type MutationRecorder interface {
	RecordMutation(name, status string, duration time.Duration)
}

// Mutation describes one write. Validate runs before the guard is released to
// the network; Reset and OnSuccess run only after a successful Call.
type Mutation[T any] struct {
	Form        FormID
	Name        string
	Validate    func() error
	Call        func(ctx context.Context) (T, error)
	Invalidates []synccache.Key
	Reset       func()
	OnSuccess   func(T)
}

type MutationCoordinator struct {
	cache    Invalidator
	logger   *slog.Logger
	recorder MutationRecorder

	mu      sync.Mutex
	pending map[FormID]struct{}
}

func NewMutationCoordinator(cache Invalidator, logger *slog.Logger, recorder MutationRecorder) *MutationCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MutationCoordinator{
		cache:    cache,
		logger:   logger,
		recorder: recorder,
		pending:  make(map[FormID]struct{}),
	}
}

// Pending reports whether form has a mutation in flight.
func (c *MutationCoordinator) Pending(form FormID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[form]
	return ok
}

// Refresh invalidates keys outside of a mutation, e.g. when the import
// monitor learns that new establishments exist.
func (c *MutationCoordinator) Refresh(keys ...synccache.Key) {
	for _, key := range keys {
		c.cache.Invalidate(key)
	}
}

func (c *MutationCoordinator) acquire(form FormID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[form]; busy {
		return false
	}
	c.pending[form] = struct{}{}
	return true
}

func (c *MutationCoordinator) release(form FormID) {
	c.mu.Lock()
	delete(c.pending, form)
	c.mu.Unlock()
}

func (c *MutationCoordinator) record(name, status string, duration time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordMutation(name, status, duration)
	}
}

// Submit runs m under its form guard. A second submission for the same form
// while the first is pending fails with domain.ErrMutationInFlight. Local
// validation errors and call errors leave the form untouched; on success the
// dependent keys are invalidated, the form is reset and OnSuccess receives
// the server's entity.
func Submit[T any](ctx context.Context, c *MutationCoordinator, m Mutation[T]) (T, error) {
	var zero T
	name := m.Name
	if name == "" {
		name = string(m.Form)
	}

	if !c.acquire(m.Form) {
		c.logger.Warn("mutation_rejected", "form", string(m.Form), "mutation", name)
		c.record(name, "rejected", 0)
		return zero, domain.WrapError(domain.ErrMutationInFlight, name, fmt.Errorf("form %s is busy", m.Form))
	}
	defer c.release(m.Form)

	if m.Validate != nil {
		if err := m.Validate(); err != nil {
			c.logger.Info("mutation_invalid", "form", string(m.Form), "mutation", name, "error", err)
			c.record(name, "invalid", 0)
			return zero, err
		}
	}

	start := time.Now()
	result, err := m.Call(ctx)
	duration := time.Since(start)
	if err != nil {
		c.logger.Error("mutation_failed",
			"form", string(m.Form),
			"mutation", name,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		c.record(name, "error", duration)
		return zero, err
	}

	for _, key := range m.Invalidates {
		c.cache.Invalidate(key)
	}
	if m.Reset != nil {
		m.Reset()
	}
	if m.OnSuccess != nil {
		m.OnSuccess(result)
	}

	c.logger.Info("mutation_succeeded",
		"form", string(m.Form),
		"mutation", name,
		"duration_ms", duration.Milliseconds(),
		"invalidated", len(m.Invalidates),
	)
	c.record(name, "success", duration)
	return result, nil
}
