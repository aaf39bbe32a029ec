// Package fleet owns every state-changing operation on the fleet: the trip
// and maintenance lifecycles and the plain record services.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
)

// EventSink receives status changes after they are committed.
type EventSink interface {
	Publish(ctx context.Context, event models.StatusEvent) error
}

type nopSink struct{}

func (nopSink) Publish(context.Context, models.StatusEvent) error { return nil }

// Engine applies lifecycle rules on top of a db.Store.
type Engine struct {
	store  db.Store
	events EventSink
	now    func() time.Time
	log    *log.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithEvents sets the sink for committed status changes.
func WithEvents(sink EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(entry *log.Entry) Option {
	return func(e *Engine) { e.log = entry }
}

// NewEngine creates an engine over store.
func NewEngine(store db.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		events: nopSink{},
		now:    time.Now,
		log:    log.WithField("component", "fleet"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store for read paths.
func (e *Engine) Store() db.Store {
	return e.store
}

// change collects the effects of one transaction. It is rebuilt on every
// attempt, since the store may retry the transaction body.
type change struct {
	at     time.Time
	events []models.StatusEvent
	undo   []func(ctx context.Context) error
}

func (c *change) record(entity, id, from, to string) {
	c.events = append(c.events, models.StatusEvent{
		ID:       uuid.NewString(),
		Entity:   entity,
		EntityID: id,
		From:     from,
		To:       to,
		At:       c.at,
	})
}

// onFailure registers a compensating write for stores running without
// transactions.
func (c *change) onFailure(fn func(ctx context.Context) error) {
	c.undo = append(c.undo, fn)
}

// transact runs fn atomically, compensates on failure, and publishes the
// recorded events once the change is committed.
func (e *Engine) transact(ctx context.Context, fn func(ctx context.Context, c *change) error) error {
	var c *change
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		c = &change{at: e.now().UTC()}
		err := fn(ctx, c)
		if err != nil {
			for i := len(c.undo) - 1; i >= 0; i-- {
				if uerr := c.undo[i](ctx); uerr != nil {
					e.log.WithError(uerr).Error("failed to revert partial change")
				}
			}
		}
		return err
	})
	if err != nil {
		return err
	}
	for _, ev := range c.events {
		if perr := e.events.Publish(ctx, ev); perr != nil {
			e.log.WithError(perr).WithFields(log.Fields{
				"entity":    ev.Entity,
				"entity_id": ev.EntityID,
			}).Warn("failed to publish status event")
		}
	}
	return nil
}

// lookup translates a store read failure.
func lookup(err error, what string) error {
	if errors.Is(err, db.ErrNotFound) {
		return notFound("%s not found", what)
	}
	return fmt.Errorf("find %s: %w", what, err)
}
