package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/rshade/routekit/internal/route"
	"github.com/rshade/routekit/internal/router"
)

// Record is one completed transition as written by Recorder.
type Record struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Operation   string    `json:"operation"`
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	Source      string    `json:"source,omitempty"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
}

// Recorder wraps a Transitioner and writes one JSON line per completed
// transition. Recording failures are logged and never fail the transition.
type Recorder struct {
	next   router.Transitioner
	mu     sync.Mutex
	enc    *json.Encoder
	logger zerolog.Logger
	now    func() time.Time
	count  int
}

// NewRecorder records transitions delegated to next onto w.
func NewRecorder(next router.Transitioner, w io.Writer, logger zerolog.Logger) *Recorder {
	return &Recorder{
		next:   next,
		enc:    json.NewEncoder(w),
		logger: logger.With().Str("component", "recorder").Logger(),
		now:    time.Now,
	}
}

// PerformTransition delegates to the wrapped transitioner and records the
// outcome.
func (r *Recorder) PerformTransition(ctx context.Context, destination any, path route.Path, done router.Completion) {
	r.next.PerformTransition(ctx, destination, path, r.wrap(OpPerform, destination, path, done))
}

// PerformRemoveTransition delegates to the wrapped transitioner and records
// the outcome.
func (r *Recorder) PerformRemoveTransition(ctx context.Context, destination any, path route.Path, done router.Completion) {
	r.next.PerformRemoveTransition(ctx, destination, path, r.wrap(OpRemove, destination, path, done))
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Recorder) wrap(op string, destination any, path route.Path, done router.Completion) router.Completion {
	start := r.now()
	return func(ok bool, err error) {
		rec := Record{
			ID:          ulid.Make().String(),
			Time:        start.UTC(),
			Operation:   op,
			Kind:        path.Kind().String(),
			Destination: fmt.Sprintf("%T", destination),
			OK:          ok,
			DurationMS:  r.now().Sub(start).Milliseconds(),
		}
		if src := path.Source(); src != nil {
			rec.Source = fmt.Sprintf("%T", src)
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if writeErr := r.write(rec); writeErr != nil {
			r.logger.Warn().Err(writeErr).Str("operation", op).Msg("failed to record transition")
		}
		done(ok, err)
	}
}

func (r *Recorder) write(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	r.count++
	return nil
}
