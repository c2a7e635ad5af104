package service

import (
	"context"
	"fmt"
)

// PublishFunc delivers one question to the destination channel.
type PublishFunc func(ctx context.Context, q QuizQuestion) error

// DispatchReport counts delivered polls. Failed indexes are 0-based positions
// in the stored list.
type DispatchReport struct {
	Total     int
	Published int
	Failed    []ItemError
}

type Dispatcher struct {
	store *Store
}

func NewDispatcher(store *Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Dispatch publishes a snapshot of the stored questions in order. A failed
// publish is recorded and the run moves on to the next question. The store
// lock is not held while publishing.
//
// Once ctx is done no further publish is started; the remaining questions are
// reported as failed with the context error.
func (d *Dispatcher) Dispatch(ctx context.Context, publish PublishFunc) (DispatchReport, error) {
	questions, err := d.store.Snapshot()
	if err != nil {
		return DispatchReport{}, err
	}

	report := DispatchReport{Total: len(questions), Failed: []ItemError{}}
	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, ItemError{Index: i, Err: err})
			continue
		}
		if err := publish(ctx, q); err != nil {
			report.Failed = append(report.Failed, ItemError{Index: i, Err: fmt.Errorf("%w: %w", ErrPublish, err)})
			continue
		}
		report.Published++
	}
	return report, nil
}
