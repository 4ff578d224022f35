package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"policyqa/internal/domain"
	"policyqa/internal/vectorstore"
)

// pointNamespace derives stable Qdrant point UUIDs from passage ids, since
// Qdrant only accepts unsigned integers or UUIDs as point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("policyqa/passages"))

// Storage is a minimal REST client to Qdrant. Init recreates the collection
// with cosine distance, so nothing outlives the session.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu        sync.Mutex
	dimension int
	ids       map[string]struct{}
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "policy_docs"
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
		ids:        make(map[string]struct{}),
	}
}

// PointID returns the Qdrant point UUID for a passage id.
func PointID(passageID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(passageID)).String()
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return err
	}
	s.mu.Lock()
	s.dimension = dimension
	s.mu.Unlock()
	return nil
}

// Add upserts points. A passage id seen before maps to the same point UUID,
// so a repeated id overwrites its earlier point.
func (s *Storage) Add(ctx context.Context, ids []string, vectors [][]float64, documents []string, metadatas []domain.Metadata) error {
	if err := vectorstore.ValidateBatch(ids, vectors, documents, metadatas); err != nil {
		return err
	}
	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	points := make([]map[string]any, len(ids))
	for i := range ids {
		if len(vectors[i]) != dim {
			return fmt.Errorf("%w: got %d, expected %d", vectorstore.ErrDimensionMismatch, len(vectors[i]), dim)
		}
		points[i] = map[string]any{
			"id":     PointID(ids[i]),
			"vector": vectors[i],
			"payload": map[string]any{
				"passage_id": ids[i],
				"document":   documents[i],
				"source":     metadatas[i].Source,
			},
		}
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
		return err
	}
	s.mu.Lock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

func (s *Storage) Query(ctx context.Context, vector []float64, k int) ([]vectorstore.Match, error) {
	if k <= 0 || s.Count() == 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	matches := make([]vectorstore.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, ok := r.Payload["passage_id"].(string)
		if !ok {
			return nil, errors.New("qdrant: search hit without passage_id payload")
		}
		matches = append(matches, vectorstore.Match{ID: id, Score: r.Score})
	}
	return matches, nil
}

// Count returns the number of distinct passage ids written this session.
func (s *Storage) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.code == http.StatusNotFound) {
		return err
	}
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

type statusError struct {
	method, url string
	code        int
	status      string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
