package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"policyqa/internal/answer"
	"policyqa/internal/chunker"
	"policyqa/internal/config"
	"policyqa/internal/domain"
	"policyqa/internal/embedding/tfidf"
	"policyqa/internal/generation"
	"policyqa/internal/metrics"
	"policyqa/internal/service"
	"policyqa/internal/vectorstore/memory"
)

type failingIndex struct{}

func (failingIndex) Ask(context.Context, string) (domain.AnswerResult, error) {
	return domain.AnswerResult{}, errors.New("index inconsistent")
}

func (failingIndex) Len() int { return 0 }

func newTestServer(t *testing.T) (*Server, *service.Pipeline) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := zap.NewNop()
	p := service.NewPipeline(service.Options{
		Chunker:  chunker.NewSentenceChunker(chunker.DefaultChunkSize),
		Embedder: tfidf.NewEmbedder(),
		Store:    memory.NewStorage(),
		Synth:    answer.NewSynthesizer(generation.Static{Text: "You have 30 days."}, logger, m),
		Logger:   logger,
		Metrics:  m,
	})
	_, err := p.Index(context.Background(), []domain.Passage{{
		ID: "policy.txt_0", Content: "You have 30 days to return a product.", Metadata: domain.Metadata{Source: "policy.txt"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(p, config.ServerConfig{Port: 8080}, logger, reg), p
}

func TestHandleAsk(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"query": "How long do I have to return a product?"})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", w.Code, w.Body.String())
	}
	var out struct {
		Answer     string   `json:"answer"`
		Confidence string   `json:"confidence"`
		Sources    []string `json:"sources"`
		Retrieval  struct {
			NumDocsRetrieved int `json:"num_docs_retrieved"`
		} `json:"retrieval"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Confidence != "medium" || out.Answer != "You have 30 days." {
		t.Errorf("unexpected answer %+v", out)
	}
	if len(out.Sources) != 1 || out.Sources[0] != "policy.txt" || out.Retrieval.NumDocsRetrieved != 1 {
		t.Errorf("unexpected provenance %+v", out)
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	for name, body := range map[string]string{
		"malformed": "{not json",
		"empty":     `{"query":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, r)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d", w.Code)
			}
		})
	}
}

func TestHandleAsk_InternalError(t *testing.T) {
	srv := NewServer(failingIndex{}, config.ServerConfig{}, nil, nil)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"query":"refunds"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "inconsistent") {
		t.Errorf("body: %s", w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]any
	json.NewDecoder(w.Body).Decode(&out)
	if out["status"] != "ok" || out["passages"].(float64) != 1 {
		t.Errorf("health: %v", out)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, p := newTestServer(t)
	if _, err := p.Ask(context.Background(), "refund"); err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	data, _ := io.ReadAll(w.Body)
	for _, name := range []string{"policyqa_asks_total", "policyqa_indexed_passages"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	srv := NewServer(failingIndex{}, config.ServerConfig{}, nil, nil)
	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d", w.Code)
	}
}
