// Package events fans committed status changes and fleet alerts out to
// external subscribers.
package events

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/models"
)

// Sink receives status events and alerts.
type Sink interface {
	Publish(ctx context.Context, event models.StatusEvent) error
	PublishAlert(ctx context.Context, alert models.Alert) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, models.StatusEvent) error { return nil }

func (Nop) PublishAlert(context.Context, models.Alert) error { return nil }

// Multi delivers to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, event models.StatusEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PublishAlert(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, s := range m {
		if err := s.PublishAlert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger writes events and alerts to a logrus entry.
type Logger struct {
	Entry *log.Entry
}

func (l Logger) Publish(_ context.Context, event models.StatusEvent) error {
	l.Entry.WithFields(log.Fields{
		"entity":    event.Entity,
		"entity_id": event.EntityID,
		"from":      event.From,
		"to":        event.To,
	}).Info("status changed")
	return nil
}

func (l Logger) PublishAlert(_ context.Context, alert models.Alert) error {
	l.Entry.WithFields(log.Fields{
		"kind":      alert.Kind,
		"entity_id": alert.EntityID,
	}).Warn(alert.Message)
	return nil
}
