package metric

import (
	"errors"
	"fmt"
)

// Request describes one evaluation to run against the engine.
//
// Which fields the engine sees depends on Kind: relevancy and similarity use
// Prompt and ActualOutput, correctness compares ActualOutput with
// ExpectedOutput (Prompt optional), and faithfulness additionally grounds
// the check in Context. Empty field values are legal everywhere; they
// produce degenerate scores from the engine, not errors.
type Request struct {
	Kind Kind `json:"metric"`

	// Prompt is the input question, or the reference text for similarity.
	Prompt string `json:"prompt,omitempty"`
	// Context is the retrieval context for faithfulness.
	Context string `json:"context,omitempty"`
	// ActualOutput is the text under evaluation.
	ActualOutput string `json:"actualOutput,omitempty"`
	// ExpectedOutput is the reference answer for correctness.
	ExpectedOutput string `json:"expectedOutput,omitempty"`

	// Threshold overrides DefaultThreshold for the engine-side pass/fail
	// verdict. The bridge reports the raw score either way.
	Threshold *float64 `json:"threshold,omitempty"`
}

// Outcome is the full result of one engine invocation.
type Outcome struct {
	// Score is the parsed metric score. Valid only when Succeeded is true.
	Score float64 `json:"score"`
	// Stdout and Stderr hold the engine process output verbatim.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
	// Succeeded reports whether the invocation produced a usable score.
	Succeeded bool `json:"succeeded"`
}

// EffectiveThreshold returns the threshold the engine should apply.
func (r *Request) EffectiveThreshold() float64 {
	if r.Threshold == nil {
		return DefaultThreshold
	}

	return *r.Threshold
}

// Validate checks that the request can be handed to the engine: the kind
// must be known and the threshold, when set, must lie in [0, 1]. A known
// kind spelled with different casing is rewritten to its canonical form,
// so later dispatch only ever sees one spelling.
func (r *Request) Validate() error {
	var err error

	kind, kindErr := ParseKind(string(r.Kind))
	if kindErr != nil {
		err = errors.Join(err, kindErr)
	} else {
		r.Kind = kind
	}

	if r.Threshold != nil && (*r.Threshold < 0 || *r.Threshold > 1) {
		err = errors.Join(err, fmt.Errorf("threshold %v is outside [0, 1]", *r.Threshold))
	}

	return err
}

// MissingFields reports which of the kind's required fields are empty. The
// bridge accepts empty fields, so this is advisory: suite validation uses it
// to catch authoring mistakes before any engine process runs.
func (r *Request) MissingFields() []string {
	var missing []string
	requires := func(field, value string) {
		if value == "" {
			missing = append(missing, field)
		}
	}

	switch r.Kind {
	case KindRelevancy, KindSimilarity:
		requires("prompt", r.Prompt)
		requires("actualOutput", r.ActualOutput)
	case KindCorrectness:
		requires("actualOutput", r.ActualOutput)
		requires("expectedOutput", r.ExpectedOutput)
	case KindFaithfulness:
		requires("prompt", r.Prompt)
		requires("context", r.Context)
		requires("actualOutput", r.ActualOutput)
	}

	return missing
}
