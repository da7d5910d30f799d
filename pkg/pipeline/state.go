package pipeline

import (
	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/pkg/store"
)

// Phase is the position of a run in the pipeline.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseNormalized
	PhaseCrawled
	PhaseIndexed
	PhaseRetrieved
	PhaseAnswered
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseStart:      "start",
	PhaseNormalized: "normalized",
	PhaseCrawled:    "crawled",
	PhaseIndexed:    "indexed",
	PhaseRetrieved:  "retrieved",
	PhaseAnswered:   "answered",
	PhaseDone:       "done",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition follows p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// State is the private working set of one run. Each stage writes only the
// fields it owns.
type State struct {
	Phase              Phase
	RawQuery           string
	Query              string
	CandidateDocuments []models.Document
	Index              *store.MemoryIndex
	TopDocuments       []models.Document
	Answer             string
}

func (s *State) result() *models.Result {
	return &models.Result{
		Query:        s.Query,
		Answer:       s.Answer,
		Documents:    nonNil(s.TopDocuments),
		AllDocuments: nonNil(s.CandidateDocuments),
	}
}

func nonNil(docs []models.Document) []models.Document {
	if docs == nil {
		return []models.Document{}
	}
	return docs
}
