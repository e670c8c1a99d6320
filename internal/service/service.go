// Package service implements the back-office use cases on top of the
// repository layer.  Every multi-step mutation runs inside one
// repository.Store transaction; domain events are published only after the
// transaction committed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/metrics"
	"github.com/iliyamo/backoffice-api/internal/queue"
)

// Publisher hands a domain event to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, ev queue.Event) error
}

// Deps carries what every service needs.  Logger and Now default to
// slog.Default and time.Now; a nil Publisher disables events.
type Deps struct {
	Logger    *slog.Logger
	Publisher Publisher
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// now returns the current time in UTC, truncated to the second as stored
// by DATETIME columns.
func (d Deps) now() time.Time { return d.Now().UTC().Truncate(time.Second) }

// publish emits an event and only logs a failure: the state change it
// describes is already committed.
func (d Deps) publish(ctx context.Context, typ string, actor *uint64, payload any) {
	if d.Publisher == nil {
		return
	}
	ev, err := queue.NewEvent(typ, d.Now(), actor, payload)
	if err == nil {
		err = d.Publisher.Publish(ctx, typ, ev)
	}
	metrics.ObservePublish(typ, err)
	if err != nil {
		d.Logger.Warn("publish event failed", "type", typ, "err", err)
	}
}

// dbErr passes classified errors through and wraps everything else as an
// internal persistence failure.
func dbErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err, "database error")
}

func ptr[T any](v T) *T { return &v }

// checkLimit rejects negative limits; zero selects the default.
func checkLimit(limit int) error {
	if limit < 0 {
		return apperr.Validation("Limit must be a positive number")
	}
	return nil
}
