package pipeline

import "fmt"

// Stage names, as reported by StageError and the stage metrics.
const (
	StageNormalize = "normalize"
	StageCrawl     = "crawl"
	StageIndex     = "index"
	StageRetrieve  = "retrieve"
	StageAnswer    = "answer"
)

// StageError records which stage aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
