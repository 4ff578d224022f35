package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"policyqa/internal/domain"
	"policyqa/internal/generation"
	"policyqa/internal/metrics"
)

// Synthesizer turns ranked passages into a confidence-graded answer.
//
// Only the top-ranked passage is sent to the generator; lower-ranked passages
// count toward the retrieval statistics and nothing else.
type Synthesizer struct {
	gen     generation.Generator
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSynthesizer(gen generation.Generator, logger *zap.Logger, m *metrics.Metrics) *Synthesizer {
	if gen == nil {
		gen = generation.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{gen: gen, logger: logger, metrics: m}
}

// BuildPrompt renders the grounding prompt for one passage and question.
func BuildPrompt(query string, passage domain.Passage) string {
	return fmt.Sprintf(`Answer ONLY using the policy text below.
If the answer is not present, say: %s

Policy Text:
%s

Question:
%s
`, domain.NotMentioned, passage.Content, query)
}

// Synthesize never fails: generation problems degrade to the raw passage at
// low confidence. Retrieval info is left for the caller to fill in.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, ranked []domain.Passage) domain.AnswerResult {
	if len(ranked) == 0 {
		return domain.AnswerResult{
			Answer:     domain.NotMentioned,
			Confidence: domain.ConfidenceNone,
			Sources:    []string{},
		}
	}
	top := ranked[0]
	res := s.gen.Generate(ctx, BuildPrompt(query, top))
	text := strings.TrimSpace(res.Text)
	if res.OK() && text != "" {
		return domain.AnswerResult{
			Answer:     text,
			Confidence: domain.ConfidenceMedium,
			Sources:    []string{top.Source()},
		}
	}
	reason := res.Reason
	if res.OK() {
		reason = generation.ReasonEmpty
	}
	s.logger.Warn("generation failed, answering with retrieved passage",
		zap.String("reason", reason), zap.String("source", top.Source()), zap.Error(res.Err))
	s.metrics.RecordGenerationFailure(reason)
	return domain.AnswerResult{
		Answer:     top.Content,
		Confidence: domain.ConfidenceLow,
		Sources:    []string{top.Source()},
	}
}
