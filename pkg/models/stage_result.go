package models

// StageStatus is the outcome class of one pipeline stage.
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageDegraded StageStatus = "degraded"
	StageFailed   StageStatus = "failed"
)

// StageResult lets callers tell "empty because nothing was found" apart from
// "empty because the stage failed". Value is always usable; on failure it is
// the zero/empty value of T.
type StageResult[T any] struct {
	Value  T
	Status StageStatus
	Reason string
	Err    error
}

func OK[T any](v T) StageResult[T] {
	return StageResult[T]{Value: v, Status: StageOK}
}

func Degraded[T any](v T, reason string) StageResult[T] {
	return StageResult[T]{Value: v, Status: StageDegraded, Reason: reason}
}

func Failed[T any](v T, err error) StageResult[T] {
	r := StageResult[T]{Value: v, Status: StageFailed, Err: err}
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}

func (r StageResult[T]) IsOK() bool { return r.Status == StageOK }

// Report drops the value, keeping what is worth persisting or returning.
func (r StageResult[T]) Report(stage string) StageReport {
	return StageReport{Stage: stage, Status: r.Status, Reason: r.Reason}
}

// StageReport is the serializable summary of a StageResult.
type StageReport struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}
