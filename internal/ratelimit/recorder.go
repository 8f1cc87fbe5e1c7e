package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Event describes one admission decision.
type Event struct {
	Route   string
	Key     string
	Allowed bool
	At      time.Time
}

// Recorder persists admission decisions for reporting. Recording is best
// effort; the middleware logs failures and never fails a request because of
// them.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Recorders fans every event out to each non-nil recorder. Errors are
// joined; one failing recorder does not stop the others.
func Recorders(recs ...Recorder) Recorder {
	var live multiRecorder
	for _, r := range recs {
		if r != nil {
			live = append(live, r)
		}
	}
	return live
}

type multiRecorder []Recorder

func (m multiRecorder) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
