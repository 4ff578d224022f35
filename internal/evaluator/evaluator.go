package evaluator

import (
	"context"
	"errors"

	"policyqa/internal/domain"
)

// Expectation labels what a correct system should do with a question.
type Expectation string

const (
	Answerable   Expectation = "answerable"
	Partial      Expectation = "partial"
	Unanswerable Expectation = "unanswerable"
)

func (e Expectation) Valid() bool {
	switch e {
	case Answerable, Partial, Unanswerable:
		return true
	}
	return false
}

// Score is the three-valued grade of one answer.
type Score string

const (
	Pass        Score = "pass"
	PartialPass Score = "partial"
	Fail        Score = "fail"
)

// ErrInvalidCase is returned for battery entries with an unknown expectation
// or an empty question.
var ErrInvalidCase = errors.New("invalid evaluation case")

type Case struct {
	Question string      `json:"question" yaml:"question"`
	Expected Expectation `json:"expected" yaml:"expected"`
}

// Record is one graded answer in a report.
type Record struct {
	Question   string            `json:"question"`
	Expected   Expectation       `json:"expected"`
	Answer     string            `json:"answer"`
	Confidence domain.Confidence `json:"confidence"`
	Sources    []string          `json:"sources"`
	Score      Score             `json:"score"`
}

type Report struct {
	Total   int      `json:"total"`
	Results []Record `json:"results"`
}

// DefaultBattery returns the built-in labelled questions.
func DefaultBattery() []Case {
	return []Case{
		{"What is your refund policy?", Answerable},
		{"How long do I have to return a product?", Answerable},
		{"Can I cancel after shipping?", Answerable},
		{"Do you offer free returns?", Partial},
		{"What are international shipping costs?", Partial},
		{"What is your privacy policy?", Unanswerable},
		{"Do you sell laptops?", Unanswerable},
		{"What are your office hours?", Unanswerable},
	}
}

// Grade scores a confidence tier against an expectation. Unanswerable
// questions pass only when the system hedges (none or low). For the other
// categories a low-confidence answer earns partial credit.
func Grade(expected Expectation, confidence domain.Confidence) Score {
	if expected == Unanswerable {
		if confidence == domain.ConfidenceNone || confidence == domain.ConfidenceLow {
			return Pass
		}
		return Fail
	}
	if confidence == domain.ConfidenceLow {
		return PartialPass
	}
	return Pass
}

// Run asks every case in order and grades the answers. A failed ask is
// recorded as a fail with the error text as its answer.
func Run(ctx context.Context, asker domain.Asker, cases []Case) Report {
	report := Report{Total: len(cases), Results: make([]Record, 0, len(cases))}
	for _, c := range cases {
		res, err := asker.Ask(ctx, c.Question)
		if err != nil {
			report.Results = append(report.Results, Record{
				Question:   c.Question,
				Expected:   c.Expected,
				Answer:     err.Error(),
				Confidence: domain.ConfidenceNone,
				Sources:    []string{},
				Score:      Fail,
			})
			continue
		}
		sources := res.Sources
		if sources == nil {
			sources = []string{}
		}
		report.Results = append(report.Results, Record{
			Question:   c.Question,
			Expected:   c.Expected,
			Answer:     res.Answer,
			Confidence: res.Confidence,
			Sources:    sources,
			Score:      Grade(c.Expected, res.Confidence),
		})
	}
	return report
}

// Summary counts scores in a report.
type Summary struct {
	Pass    int
	Partial int
	Fail    int
}

func Summarize(r Report) Summary {
	var s Summary
	for _, rec := range r.Results {
		switch rec.Score {
		case Pass:
			s.Pass++
		case PartialPass:
			s.Partial++
		default:
			s.Fail++
		}
	}
	return s
}
