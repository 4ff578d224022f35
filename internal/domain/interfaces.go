package domain

import "context"

// NotMentioned is the abstention phrase used both in the grounding prompt and
// as the answer when nothing was retrieved.
const NotMentioned = "Not mentioned in the policy documents."

// Document represents a single policy file loaded into the system.
type Document struct {
	Source  string
	Path    string
	Content string
}

// Metadata carries passage provenance.
type Metadata struct {
	Source string `json:"source"`
}

// Passage is a bounded, sentence-aligned chunk of a document and the unit of
// retrieval. Passages are never mutated after the chunker emits them.
type Passage struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Source is shorthand for p.Metadata.Source.
func (p Passage) Source() string { return p.Metadata.Source }

// Confidence is a categorical trust signal with the total order
// none < low < medium.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	default:
		return 0
	}
}

// Less reports whether c is strictly less trusted than other.
func (c Confidence) Less(other Confidence) bool { return c.rank() < other.rank() }

// RetrievalInfo describes the retrieval step behind an answer.
type RetrievalInfo struct {
	NumDocsRetrieved int `json:"num_docs_retrieved"`
}

// AnswerResult is produced fresh for every query.
type AnswerResult struct {
	Answer     string        `json:"answer"`
	Confidence Confidence    `json:"confidence"`
	Sources    []string      `json:"sources"`
	Retrieval  RetrievalInfo `json:"retrieval"`
}

// Chunker splits documents into passages suitable for retrieval indexing.
type Chunker interface {
	Chunk(text, source string) []Passage
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Asker is the caller-facing subset of the pipeline used by front-ends and
// the evaluator.
type Asker interface {
	Ask(ctx context.Context, query string) (AnswerResult, error)
}
