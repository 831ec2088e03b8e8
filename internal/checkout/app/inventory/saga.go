package inventory

import (
	"context"
	"errors"
	"fmt"
)

// step is a completed forward action together with the action that undoes it.
type step struct {
	name    string
	reverse func(ctx context.Context) error
}

// Saga records completed forward actions so they can be undone in reverse order.
type Saga struct {
	done []step
}

// Do runs forward and, if it succeeds, remembers reverse for compensation.
func (s *Saga) Do(ctx context.Context, name string, forward, reverse func(ctx context.Context) error) error {
	if err := forward(ctx); err != nil {
		return err
	}
	s.done = append(s.done, step{name: name, reverse: reverse})
	return nil
}

// Compensate undoes every completed step, newest first. It keeps going after a
// failed reverse action and returns all failures joined.
func (s *Saga) Compensate(ctx context.Context) error {
	var errs []error
	for i := len(s.done) - 1; i >= 0; i-- {
		if err := s.done[i].reverse(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", s.done[i].name, err))
		}
	}
	s.done = nil
	return errors.Join(errs...)
}

// Len reports how many forward steps are pending compensation.
func (s *Saga) Len() int {
	return len(s.done)
}
