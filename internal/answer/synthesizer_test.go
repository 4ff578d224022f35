package answer

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"policyqa/internal/domain"
	"policyqa/internal/generation"
	"policyqa/internal/metrics"
)

type recordingGen struct {
	prompts []string
	result  generation.Result
}

func (r *recordingGen) Generate(_ context.Context, prompt string) generation.Result {
	r.prompts = append(r.prompts, prompt)
	return r.result
}

func passage(id, content, source string) domain.Passage {
	return domain.Passage{ID: id, Content: content, Metadata: domain.Metadata{Source: source}}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("How long?", passage("a_0", "You have 30 days.", "a"))
	for _, want := range []string{"You have 30 days.", "How long?", domain.NotMentioned, "ONLY"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestSynthesize_EmptyRetrieval(t *testing.T) {
	gen := &recordingGen{result: generation.Ok("should not be used")}
	s := NewSynthesizer(gen, nil, nil)
	res := s.Synthesize(context.Background(), "anything", nil)
	if res.Answer != domain.NotMentioned || res.Confidence != domain.ConfidenceNone {
		t.Fatalf("unexpected %+v", res)
	}
	if res.Sources == nil || len(res.Sources) != 0 {
		t.Errorf("sources should be empty, got %#v", res.Sources)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator called for empty retrieval")
	}
}

func TestSynthesize_Tiers(t *testing.T) {
	ranked := []domain.Passage{
		passage("policy.txt_0", "You have 30 days to return a product.", "policy.txt"),
		passage("other.txt_0", "Shipping is free over $50.", "other.txt"),
	}
	tests := []struct {
		name       string
		result     generation.Result
		answer     string
		confidence domain.Confidence
		failures   float64
	}{
		{"success", generation.Ok(" 30 days. \n"), "30 days.", domain.ConfidenceMedium, 0},
		{"failure", generation.Failed(generation.ReasonTimeout, context.DeadlineExceeded), ranked[0].Content, domain.ConfidenceLow, 1},
		{"whitespace", generation.Ok("   "), ranked[0].Content, domain.ConfidenceLow, 1},
		{"disabled", generation.Failed(generation.ReasonDisabled, nil), ranked[0].Content, domain.ConfidenceLow, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			gen := &recordingGen{result: tt.result}
			s := NewSynthesizer(gen, nil, m)
			res := s.Synthesize(context.Background(), "How long?", ranked)
			if res.Answer != tt.answer || res.Confidence != tt.confidence {
				t.Fatalf("got %+v", res)
			}
			if len(res.Sources) != 1 || res.Sources[0] != "policy.txt" {
				t.Errorf("sources = %v", res.Sources)
			}
			if len(gen.prompts) != 1 {
				t.Fatalf("generator calls = %d", len(gen.prompts))
			}
			if strings.Contains(gen.prompts[0], "Shipping is free") {
				t.Error("prompt should only contain the top passage")
			}
			if got := testutil.CollectAndCount(m.GenerationFailures); float64(got) != tt.failures {
				t.Errorf("failure series = %d, want %v", got, tt.failures)
			}
		})
	}
}

func TestSynthesize_NilGeneratorFallsBack(t *testing.T) {
	s := NewSynthesizer(nil, nil, nil)
	res := s.Synthesize(context.Background(), "q", []domain.Passage{passage("a_0", "text", "a")})
	if res.Confidence != domain.ConfidenceLow || res.Answer != "text" {
		t.Fatalf("got %+v", res)
	}
}
