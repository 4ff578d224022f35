package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"policyqa/internal/answer"
	"policyqa/internal/domain"
	"policyqa/internal/embedding"
	"policyqa/internal/metrics"
	"policyqa/internal/summarizer"
	"policyqa/internal/vectorstore"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 3

// ErrIndexInconsistent is returned when the vector store yields an id the
// pipeline never indexed.
var ErrIndexInconsistent = errors.New("index inconsistent")

// Pipeline owns the corpus index and answers questions against it.
//
// Index and IngestDocuments form the build phase and are serialized; Retrieve
// and Ask may run concurrently with each other once indexing is done.
type Pipeline struct {
	chunker    domain.Chunker
	embedder   embedding.Embedder
	store      vectorstore.Storage
	synth      *answer.Synthesizer
	summarizer domain.Summarizer
	logger     *zap.Logger
	metrics    *metrics.Metrics
	topK       int

	mu       sync.RWMutex
	passages map[string]domain.Passage
	order    []string
}

type Options struct {
	Chunker    domain.Chunker
	Embedder   embedding.Embedder
	Store      vectorstore.Storage
	Synth      *answer.Synthesizer
	Summarizer domain.Summarizer
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	TopK       int
}

func NewPipeline(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Synth == nil {
		opts.Synth = answer.NewSynthesizer(nil, opts.Logger, opts.Metrics)
	}
	if opts.Summarizer == nil {
		opts.Summarizer = summarizer.NewFrequencySummarizer()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Pipeline{
		chunker:    opts.Chunker,
		embedder:   opts.Embedder,
		store:      opts.Store,
		synth:      opts.Synth,
		summarizer: opts.Summarizer,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		topK:       opts.TopK,
		passages:   make(map[string]domain.Passage),
	}
}

// Len returns the number of indexed passages.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Index adds passages whose ids are not yet indexed and returns how many were
// added. Ids already present, or repeated within passages, are skipped.
//
// The embedder is re-prepared over the whole corpus and the store is rebuilt,
// since corpus-dependent embedders change their space as the corpus grows.
// An embedder error leaves the index as it was. A store error empties it.
func (p *Pipeline) Index(ctx context.Context, passages []domain.Passage) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fresh []domain.Passage
	seen := make(map[string]struct{}, len(passages))
	skipped := 0
	for _, ps := range passages {
		_, indexed := p.passages[ps.ID]
		_, dup := seen[ps.ID]
		if indexed || dup {
			skipped++
			continue
		}
		seen[ps.ID] = struct{}{}
		fresh = append(fresh, ps)
	}
	if skipped > 0 {
		p.logger.Info("skipped already indexed passages", zap.Int("skipped", skipped))
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	all := make([]domain.Passage, 0, len(p.order)+len(fresh))
	for _, id := range p.order {
		all = append(all, p.passages[id])
	}
	oldCorpus := contents(all)
	all = append(all, fresh...)
	corpus := contents(all)

	if err := p.embedder.Prepare(ctx, corpus); err != nil {
		return 0, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors, err := p.embedder.Encode(ctx, corpus)
	if err == nil && len(vectors) != len(corpus) {
		err = fmt.Errorf("got %d vectors for %d passages", len(vectors), len(corpus))
	}
	if err != nil {
		if len(oldCorpus) > 0 {
			if rerr := p.embedder.Prepare(ctx, oldCorpus); rerr != nil {
				p.logger.Error("restore embedder", zap.Error(rerr))
			}
		}
		return 0, fmt.Errorf("embed passages: %w", err)
	}

	ids := make([]string, len(all))
	metas := make([]domain.Metadata, len(all))
	for i, ps := range all {
		ids[i] = ps.ID
		metas[i] = ps.Metadata
	}
	if err := p.rebuildStore(ctx, ids, vectors, corpus, metas); err != nil {
		p.passages = make(map[string]domain.Passage)
		p.order = nil
		p.metrics.SetIndexed(0)
		if cerr := p.store.Clear(ctx); cerr != nil {
			p.logger.Error("clear store after failed write", zap.Error(cerr))
		}
		return 0, err
	}

	for _, ps := range fresh {
		p.passages[ps.ID] = ps
		p.order = append(p.order, ps.ID)
	}
	p.metrics.SetIndexed(len(p.order))
	p.logger.Info("indexed passages", zap.Int("passages", len(fresh)), zap.Int("total", len(p.order)))
	return len(fresh), nil
}

func (p *Pipeline) rebuildStore(ctx context.Context, ids []string, vectors [][]float64, docs []string, metas []domain.Metadata) error {
	dim := p.embedder.Dimension()
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	if err := p.store.Init(ctx, dim); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	if err := p.store.Add(ctx, ids, vectors, docs, metas); err != nil {
		return fmt.Errorf("add to vector store: %w", err)
	}
	return nil
}

// Retrieve returns up to k passages ranked by similarity to query. k <= 0
// uses the configured default. An empty index or blank query yields no
// passages without calling the embedder.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	if k <= 0 {
		k = p.topK
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.order) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vec, err := embedding.EncodeOne(ctx, p.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := p.store.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}
	out := make([]domain.Passage, 0, len(matches))
	for _, m := range matches {
		ps, ok := p.passages[m.ID]
		if !ok {
			return nil, fmt.Errorf("%w: store returned unknown id %q", ErrIndexInconsistent, m.ID)
		}
		out = append(out, ps)
	}
	return out, nil
}

// Ask retrieves passages for query and synthesizes an answer. The error is
// non-nil only for internal failures; generation problems and empty retrieval
// are reported through the answer's confidence.
func (p *Pipeline) Ask(ctx context.Context, query string) (domain.AnswerResult, error) {
	start := time.Now()
	ranked, err := p.Retrieve(ctx, query, p.topK)
	if err != nil {
		p.logger.Error("retrieval failed", zap.String("query", query), zap.Error(err))
		return domain.AnswerResult{}, err
	}
	res := p.synth.Synthesize(ctx, query, ranked)
	res.Retrieval = domain.RetrievalInfo{NumDocsRetrieved: len(ranked)}
	p.metrics.RecordAsk(string(res.Confidence), time.Since(start))
	p.logger.Debug("answered",
		zap.String("query", query),
		zap.String("confidence", string(res.Confidence)),
		zap.Int("retrieved", len(ranked)))
	return res, nil
}

// IngestDocuments chunks and indexes docs, then returns a short overview of
// the whole corpus.
func (p *Pipeline) IngestDocuments(ctx context.Context, docs []domain.Document) (string, error) {
	if len(docs) == 0 {
		return "", errors.New("no documents to ingest")
	}
	var passages []domain.Passage
	var text strings.Builder
	for _, d := range docs {
		chunks := p.chunker.Chunk(d.Content, d.Source)
		p.logger.Debug("chunked document", zap.String("source", d.Source), zap.Int("passages", len(chunks)))
		passages = append(passages, chunks...)
		text.WriteString(d.Content)
		text.WriteString("\n")
	}
	if _, err := p.Index(ctx, passages); err != nil {
		return "", err
	}
	return p.summarizer.Summarize(text.String(), summarizer.DefaultMaxSentences)
}

func contents(ps []domain.Passage) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Content
	}
	return out
}
