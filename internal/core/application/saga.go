package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga records what a multi step flow has reserved so far. Once a step
// fails, rollback undoes the reservations in reverse order; a flow that
// reaches the end calls commit and keeps them.
type saga struct {
	name          string
	fields        log.Fields
	compensations []compensation
	done          bool
}

func newSaga(name string, fields log.Fields) *saga {
	if fields == nil {
		fields = log.Fields{}
	}
	return &saga{name: name, fields: fields}
}

func (s *saga) onFailure(name string, fn func(ctx context.Context) error) {
	s.compensations = append(s.compensations, compensation{name, fn})
}

func (s *saga) commit() {
	s.done = true
}

// rollback runs the registered compensations last to first, detached from
// the cancellation of ctx, and returns the first compensation error.
func (s *saga) rollback(ctx context.Context, cause error) error {
	if s.done {
		return nil
	}
	s.done = true

	ctx = context.WithoutCancel(ctx)
	logger := log.WithFields(s.fields).WithField("flow", s.name)
	if cause != nil {
		logger = logger.WithError(cause)
	}
	logger.Debugf("rolling back %d step(s)", len(s.compensations))

	var firstErr error
	for i := len(s.compensations) - 1; i >= 0; i-- {
		c := s.compensations[i]
		if err := c.fn(ctx); err != nil {
			log.WithFields(s.fields).WithError(err).Warnf(
				"%s: failed to %s", s.name, c.name,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to %s: %w", c.name, err)
			}
		}
	}
	return firstErr
}

// finish rolls back if *errp is set. Meant to be deferred right after the
// saga is created.
func (s *saga) finish(ctx context.Context, errp *error) {
	if *errp != nil {
		_ = s.rollback(ctx, *errp)
		return
	}
	s.commit()
}
