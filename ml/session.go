package ml

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/YuminosukeSato/datalab/correlation"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/YuminosukeSato/datalab/preprocessing"
	"github.com/YuminosukeSato/datalab/stats"
	"github.com/YuminosukeSato/datalab/table"
	"github.com/google/uuid"
)

// State is the training state of a Session.
type State int

const (
	StateIdle State = iota
	StateTraining
	StateTrained
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Session is one analysis context: a table snapshot and zero or one
// trained model. At most one training run is in flight at a time; a second
// TrainAsync while one runs fails with TrainingInProgressError.
//
// Session is safe for concurrent use.
type Session struct {
	id     string
	logger log.Logger

	mu      sync.Mutex
	table   *table.Table
	state   State
	model   *Model
	lastErr error
	run     *Run
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger replaces the session logger. The session id is added to it.
func WithLogger(l log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithSessionID fixes the session id instead of generating a UUID.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// NewSession creates an Idle session over t.
func NewSession(t *table.Table, opts ...SessionOption) *Session {
	s := &Session{table: t}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("ml.session")
	}
	s.logger = s.logger.With(log.SessionIDKey, s.id)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Table returns the current table snapshot.
func (s *Session) Table() *table.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// State returns the current training state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Model returns the held model, or nil unless the state is Trained.
func (s *Session) Model() *Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// LastError returns the error of the last failed run, or nil.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Describe computes statistics of a column of the current snapshot.
func (s *Session) Describe(column string) (stats.Statistics, error) {
	return stats.Describe(s.Table(), column)
}

// Correlate computes the Pearson matrix over columns of the current snapshot.
func (s *Session) Correlate(columns []string) (correlation.Matrix, error) {
	return correlation.Correlate(s.Table(), columns)
}

// Apply runs one preprocessing method and, on success, replaces the held
// snapshot with the result. On failure the snapshot is unchanged.
func (s *Session) Apply(column string, method preprocessing.Method, opts ...preprocessing.Option) (*table.Table, error) {
	return s.transform(func(t *table.Table) (*table.Table, error) {
		return preprocessing.Apply(t, column, method, opts...)
	})
}

// RunPipeline applies every step of p, all or nothing.
func (s *Session) RunPipeline(p *preprocessing.Pipeline) (*table.Table, error) {
	return s.transform(p.Run)
}

func (s *Session) transform(fn func(*table.Table) (*table.Table, error)) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.table)
	if err != nil {
		return nil, err
	}
	s.table = next
	return next, nil
}

// Predict evaluates the held model on one feature vector.
func (s *Session) Predict(features []float64) (float64, error) {
	v, err := Predict(s.Model(), features)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("predicted",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.FeaturesKey, len(features),
	)
	return v, nil
}

// Train runs a training request to completion.
func (s *Session) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	run, err := s.TrainAsync(ctx, req)
	if err != nil {
		return nil, err
	}
	return run.Wait()
}

// TrainAsync validates req against the current snapshot and starts the run
// in the background. Request errors (unknown column, bad fraction) are
// returned directly and leave the session untouched. Once started, the held
// model is discarded; the run ends in Trained, Failed, or Idle if it was
// cancelled.
func (s *Session) TrainAsync(ctx context.Context, req TrainRequest) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTraining {
		return nil, errors.NewTrainingInProgressError(s.id)
	}
	d, err := prepare(s.table, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	s.state = StateTraining
	s.model = nil
	s.lastErr = nil
	s.run = run

	logger := s.logger.With(log.ModelNameKey, d.algorithm.Name())
	logger.Info("training started",
		log.HyperParamsKey, algorithmObject{d.algorithm},
		log.SamplesKey, s.table.NumRows(),
		log.FeaturesKey, len(d.features),
	)

	go func() {
		defer cancel()
		res, err := execute(runCtx, d, run.setProgress, logger)
		s.finish(run, runCtx, res, err, logger)
	}()
	return run, nil
}

func (s *Session) finish(run *Run, ctx context.Context, res *TrainResult, err error, logger log.Logger) {
	s.mu.Lock()
	switch {
	case ctx.Err() != nil:
		// キャンセルされた実行は結果を保持しない
		s.state = StateIdle
		run.err = ctx.Err()
		logger.Info("training cancelled", log.StateKey, s.state.String())
	case err != nil:
		s.state = StateFailed
		s.lastErr = err
		run.err = err
		logger.Error("training failed", err, log.StateKey, s.state.String())
	default:
		s.state = StateTrained
		s.model = res.Model
		run.result = res
		logger.Info("training finished", log.StateKey, s.state.String(), "result", res)
	}
	s.run = nil
	s.mu.Unlock()
	close(run.done)
}

// Run is a handle on one background training run.
type Run struct {
	done     chan struct{}
	cancel   context.CancelFunc
	progress atomic.Uint64 // math.Float64bits of the fraction

	result *TrainResult
	err    error
}

// Done is closed when the run has ended and the session state is final.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends. A cancelled run returns the context error.
func (r *Run) Wait() (*TrainResult, error) {
	<-r.done
	return r.result, r.err
}

// Cancel asks the run to stop. The session returns to Idle unless the run
// had already finished.
func (r *Run) Cancel() { r.cancel() }

// Progress returns an advisory fraction in [0, 1] that only increases.
func (r *Run) Progress() float64 {
	return math.Float64frombits(r.progress.Load())
}

func (r *Run) setProgress(p float64) {
	next := math.Float64bits(p)
	for {
		cur := r.progress.Load()
		if math.Float64frombits(cur) >= p {
			return
		}
		if r.progress.CompareAndSwap(cur, next) {
			return
		}
	}
}
