package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Kind is the stable tag attached to every engine error surfaced to callers.
// Values never change between releases; callers may switch on them.
type Kind string

const (
	KindColumnNotFound     Kind = "ColumnNotFoundError"
	KindMalformedRow       Kind = "MalformedRowError"
	KindEmptyColumn        Kind = "EmptyColumnError"
	KindDegenerateRange    Kind = "DegenerateRangeError"
	KindTraining           Kind = "TrainingError"
	KindNotTrained         Kind = "NotTrainedError"
	KindFeatureShape       Kind = "FeatureShapeError"
	KindTrainingInProgress Kind = "TrainingInProgressError"
)

// Kinded is implemented by every error in the engine taxonomy.
type Kinded interface {
	error
	Kind() Kind
}

// KindOf returns the kind tag of the outermost taxonomy error in err's chain,
// or the empty Kind when err carries none.
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// IsKind reports whether err's chain contains a taxonomy error of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if kinded, ok := err.(Kinded); ok && kinded.Kind() == k {
			return true
		}
		err = errors.UnwrapOnce(err)
	}
	return false
}

// ColumnNotFoundError is returned when a header lookup finds no column of that name.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("datalab: column %q not found", e.Column)
}

// Kind implements Kinded.
func (e *ColumnNotFoundError) Kind() Kind { return KindColumnNotFound }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ColumnNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).Str("type", string(e.Kind()))
}

// NewColumnNotFoundError creates a ColumnNotFoundError with a stack trace.
func NewColumnNotFoundError(column string) error {
	return errors.WithStack(&ColumnNotFoundError{Column: column})
}

// MalformedRowError is returned when a data row's length differs from the header.
// Row is the zero-based data row index (the header is not counted).
type MalformedRowError struct {
	Row      int
	Expected int
	Got      int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("datalab: row %d has %d cells, header has %d", e.Row, e.Got, e.Expected)
}

// Kind implements Kinded.
func (e *MalformedRowError) Kind() Kind { return KindMalformedRow }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MalformedRowError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("row", e.Row).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", string(e.Kind()))
}

// NewMalformedRowError creates a MalformedRowError with a stack trace.
func NewMalformedRowError(row, expected, got int) error {
	return errors.WithStack(&MalformedRowError{Row: row, Expected: expected, Got: got})
}

// EmptyColumnError is returned when a column has no numeric cells to compute over.
type EmptyColumnError struct {
	Column string
	Op     string
}

func (e *EmptyColumnError) Error() string {
	return fmt.Sprintf("datalab: %s: column %q has no numeric values", e.Op, e.Column)
}

// Kind implements Kinded.
func (e *EmptyColumnError) Kind() Kind { return KindEmptyColumn }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *EmptyColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).Str("operation", e.Op).Str("type", string(e.Kind()))
}

// NewEmptyColumnError creates an EmptyColumnError with a stack trace.
func NewEmptyColumnError(op, column string) error {
	return errors.WithStack(&EmptyColumnError{Column: column, Op: op})
}

// DegenerateRangeError is returned when a rescale would divide by a zero-width range.
type DegenerateRangeError struct {
	Column string
	Value  float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("datalab: column %q has a single distinct value %g; range is zero", e.Column, e.Value)
}

// Kind implements Kinded.
func (e *DegenerateRangeError) Kind() Kind { return KindDegenerateRange }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DegenerateRangeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).Float64("value", e.Value).Str("type", string(e.Kind()))
}

// NewDegenerateRangeError creates a DegenerateRangeError with a stack trace.
func NewDegenerateRangeError(column string, value float64) error {
	return errors.WithStack(&DegenerateRangeError{Column: column, Value: value})
}

// TrainingError wraps the cause of a failed training run.
type TrainingError struct {
	Algorithm string
	Cause     error
}

func (e *TrainingError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("datalab: training %s failed", e.Algorithm)
	}
	return fmt.Sprintf("datalab: training %s failed: %v", e.Algorithm, e.Cause)
}

func (e *TrainingError) Unwrap() error {
	return e.Cause
}

// Kind implements Kinded.
func (e *TrainingError) Kind() Kind { return KindTraining }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TrainingError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", e.Algorithm).Str("type", string(e.Kind()))
	if e.Cause != nil {
		event.Str("cause", e.Cause.Error())
	}
}

// NewTrainingError creates a TrainingError with a stack trace.
func NewTrainingError(algorithm string, cause error) error {
	return errors.WithStack(&TrainingError{Algorithm: algorithm, Cause: cause})
}

// NotTrainedError is returned by predict when no trained model is held.
type NotTrainedError struct{}

func (e *NotTrainedError) Error() string {
	return "datalab: no trained model; call Train() first"
}

// Kind implements Kinded.
func (e *NotTrainedError) Kind() Kind { return KindNotTrained }

// NewNotTrainedError creates a NotTrainedError with a stack trace.
func NewNotTrainedError() error {
	return errors.WithStack(&NotTrainedError{})
}

// FeatureShapeError is returned when a feature vector does not match the trained feature count.
type FeatureShapeError struct {
	Expected int
	Got      int
}

func (e *FeatureShapeError) Error() string {
	return fmt.Sprintf("datalab: feature vector has %d values, model was trained on %d features", e.Got, e.Expected)
}

// Kind implements Kinded.
func (e *FeatureShapeError) Kind() Kind { return KindFeatureShape }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FeatureShapeError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("expected", e.Expected).Int("got", e.Got).Str("type", string(e.Kind()))
}

// NewFeatureShapeError creates a FeatureShapeError with a stack trace.
func NewFeatureShapeError(expected, got int) error {
	return errors.WithStack(&FeatureShapeError{Expected: expected, Got: got})
}

// TrainingInProgressError is returned when a session already has a run in flight.
type TrainingInProgressError struct {
	SessionID string
}

func (e *TrainingInProgressError) Error() string {
	return fmt.Sprintf("datalab: session %s already has a training run in progress", e.SessionID)
}

// Kind implements Kinded.
func (e *TrainingInProgressError) Kind() Kind { return KindTrainingInProgress }

// NewTrainingInProgressError creates a TrainingInProgressError with a stack trace.
func NewTrainingInProgressError(sessionID string) error {
	return errors.WithStack(&TrainingInProgressError{SessionID: sessionID})
}
