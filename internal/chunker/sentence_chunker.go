package chunker

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"policyqa/internal/domain"
)

// DefaultChunkSize is the soft upper bound on passage length, in characters.
const DefaultChunkSize = 512

// SentenceChunker greedily packs whole sentences into passages of at most
// chunkSize characters. A single sentence longer than chunkSize is emitted
// whole rather than truncated.
type SentenceChunker struct {
	chunkSize int
	boundary  *regexp.Regexp
}

func NewSentenceChunker(chunkSize int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &SentenceChunker{
		chunkSize: chunkSize,
		boundary:  regexp.MustCompile(`[.!?]\s+`),
	}
}

// Clean collapses every whitespace run to a single space and trims the ends.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Sentences splits cleaned text after '.', '!' or '?' followed by whitespace.
func (c *SentenceChunker) Sentences(text string) []string {
	var out []string
	prev := 0
	for _, loc := range c.boundary.FindAllStringIndex(text, -1) {
		// keep the punctuation, drop the whitespace
		if s := strings.TrimSpace(text[prev : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		prev = loc[1]
	}
	if s := strings.TrimSpace(text[prev:]); s != "" {
		out = append(out, s)
	}
	return out
}

// Chunk cleans text and splits it into passages with ids "{source}_{n}".
// Identical input always yields identical ids and contents.
func (c *SentenceChunker) Chunk(text, source string) []domain.Passage {
	sentences := c.Sentences(Clean(text))
	if len(sentences) == 0 {
		return nil
	}
	var (
		passages []domain.Passage
		buf      strings.Builder
		bufLen   int
	)
	emit := func() {
		content := strings.TrimSpace(buf.String())
		if content == "" {
			return
		}
		passages = append(passages, domain.Passage{
			ID:       source + "_" + strconv.Itoa(len(passages)),
			Content:  content,
			Metadata: domain.Metadata{Source: source},
		})
		buf.Reset()
		bufLen = 0
	}
	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if bufLen > 0 && bufLen+n > c.chunkSize {
			emit()
		}
		buf.WriteString(s)
		buf.WriteByte(' ')
		bufLen += n + 1
	}
	emit()
	return passages
}
