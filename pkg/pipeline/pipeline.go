package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/metrics"
	"github.com/xhad/seek/pkg/tracing"
)

// Observer is told about every phase a run enters, in order.
type Observer func(Phase)

type Config struct {
	TopK         int
	EmbedTimeout time.Duration
	OnTransition Observer // called for every run, before per-run observers
}

// Pipeline answers one query at a time from a freshly crawled corpus.
// It holds no per-run state and may be shared by concurrent callers.
type Pipeline struct {
	config      Config
	normalizer  types.Normalizer
	crawler     types.Crawler
	indexer     *Indexer
	retriever   *Retriever
	synthesizer types.Synthesizer
}

// New wires the stages. The same embedder is used for documents and queries.
func New(normalizer types.Normalizer, crawler types.Crawler, embedder types.Embedder, synthesizer types.Synthesizer, config Config) *Pipeline {
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.EmbedTimeout == 0 {
		config.EmbedTimeout = 30 * time.Second
	}
	return &Pipeline{
		config:      config,
		normalizer:  normalizer,
		crawler:     crawler,
		indexer:     NewIndexer(embedder, config.EmbedTimeout),
		retriever:   NewRetriever(embedder, config.TopK, config.EmbedTimeout),
		synthesizer: synthesizer,
	}
}

type stage struct {
	name string
	next Phase
	run  func(ctx context.Context, s *State) error
}

// Run executes every stage in order. Any failure ends the run and is
// returned as a *StageError; no partial result is produced.
func (p *Pipeline) Run(ctx context.Context, query string, observers ...Observer) (*models.Result, error) {
	ctx, span := tracing.Tracer().Start(ctx, "pipeline.Run")
	defer span.End()

	log := logging.FromContext(ctx)
	state := &State{Phase: PhaseStart, RawQuery: query}

	transition := func(phase Phase) {
		state.Phase = phase
		log.Debug("Pipeline transition", zap.Stringer("phase", phase))
		if p.config.OnTransition != nil {
			p.config.OnTransition(phase)
		}
		for _, observe := range observers {
			observe(phase)
		}
	}
	transition(PhaseStart)

	stages := []stage{
		{StageNormalize, PhaseNormalized, p.normalize},
		{StageCrawl, PhaseCrawled, p.crawl},
		{StageIndex, PhaseIndexed, p.index},
		{StageRetrieve, PhaseRetrieved, p.retrieve},
		{StageAnswer, PhaseAnswered, p.answer},
	}

	started := time.Now()
	for _, st := range stages {
		if err := p.runStage(ctx, state, st); err != nil {
			transition(PhaseFailed)
			metrics.PipelineRunsTotal.WithLabelValues("failed").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("Pipeline failed",
				zap.String("stage", st.name),
				zap.String("query", state.RawQuery),
				zap.Error(err),
			)
			return nil, err
		}
		transition(st.next)
	}
	transition(PhaseDone)

	metrics.PipelineRunsTotal.WithLabelValues("done").Inc()
	log.Info("Pipeline finished",
		zap.String("query", state.Query),
		zap.Int("candidates", len(state.CandidateDocuments)),
		zap.Int("top", len(state.TopDocuments)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return state.result(), nil
}

func (p *Pipeline) runStage(ctx context.Context, state *State, st stage) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: st.name, Err: err}
	}

	ctx, span := tracing.Tracer().Start(ctx, "pipeline."+st.name)
	defer span.End()

	started := time.Now()
	err := st.run(ctx, state)
	metrics.StageDuration.WithLabelValues(st.name).Observe(time.Since(started).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: st.name, Err: err}
	}
	return nil
}

func (p *Pipeline) normalize(ctx context.Context, s *State) error {
	query, err := p.normalizer.Normalize(ctx, s.RawQuery)
	if err != nil {
		return err
	}
	s.Query = query
	return nil
}

func (p *Pipeline) crawl(ctx context.Context, s *State) error {
	docs, err := p.crawler.Crawl(ctx, s.Query)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	s.CandidateDocuments = docs
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("corpus.size", len(docs)))
	return nil
}

func (p *Pipeline) index(ctx context.Context, s *State) error {
	index, err := p.indexer.Build(ctx, s.CandidateDocuments)
	if err != nil {
		return err
	}
	s.Index = index
	return nil
}

func (p *Pipeline) retrieve(ctx context.Context, s *State) error {
	docs, err := p.retriever.Retrieve(ctx, s.Index, s.Query)
	if err != nil {
		return err
	}
	s.TopDocuments = docs
	return nil
}

func (p *Pipeline) answer(ctx context.Context, s *State) error {
	answer, err := p.synthesizer.Answer(ctx, s.Query, s.TopDocuments)
	if err != nil {
		return err
	}
	s.Answer = answer
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("answer.length", len(answer)))
	return nil
}
