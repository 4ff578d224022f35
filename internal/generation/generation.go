package generation

import (
	"context"
	"strings"
)

// Failure reasons reported by generators.
const (
	ReasonDisabled  = "disabled"
	ReasonError     = "error"
	ReasonTimeout   = "timeout"
	ReasonEmpty     = "empty"
	ReasonMalformed = "malformed"
)

// Result is the outcome of one generation call: either text or a failure
// reason. The zero value is a failure with an empty reason.
type Result struct {
	Text   string
	Reason string
	Err    error
	ok     bool
}

// Ok wraps successfully generated text.
func Ok(text string) Result { return Result{Text: text, ok: true} }

// Failed builds a failed result.
func Failed(reason string, err error) Result { return Result{Reason: reason, Err: err} }

// OK reports whether the call produced text.
func (r Result) OK() bool { return r.ok }

// Generator turns a prompt into text. Implementations never return errors;
// failures are carried in the Result.
type Generator interface {
	Generate(ctx context.Context, prompt string) Result
}

// Disabled is a Generator that always fails. Answers fall back to the
// retrieved passage.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) Result {
	return Failed(ReasonDisabled, nil)
}

// Static returns fixed text, or a failure when Fail is set. Used in tests and
// offline demos.
type Static struct {
	Text string
	Fail bool
}

func (s Static) Generate(ctx context.Context, _ string) Result {
	if err := ctx.Err(); err != nil {
		return Failed(ReasonTimeout, err)
	}
	if s.Fail {
		return Failed(ReasonError, nil)
	}
	if strings.TrimSpace(s.Text) == "" {
		return Failed(ReasonEmpty, nil)
	}
	return Ok(s.Text)
}
