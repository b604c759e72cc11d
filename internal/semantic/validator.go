package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"xinsight/pkg/types"
)

// DefaultThreshold is the similarity above which a match counts as validated.
const DefaultThreshold = 0.65

const (
	unmatchedCategory = "General Observation"
	unknownCategory   = "Unknown"
)

// Validator scores a findings sentence against the knowledge base.
type Validator struct {
	kb        *KnowledgeBase
	emb       Embedder
	threshold float64
	log       zerolog.Logger
}

// NewValidator returns a validator. emb may be nil when embeddings are disabled,
// in which case every call reports an uninitialized knowledge base.
func NewValidator(kb *KnowledgeBase, emb Embedder, threshold float64, log zerolog.Logger) *Validator {
	if kb == nil {
		kb = NewKnowledgeBase(nil)
	}
	return &Validator{kb: kb, emb: emb, threshold: threshold, log: log}
}

// Validate checks a comma-joined findings summary ("Effusion, Mass" or "Normal").
func (v *Validator) Validate(ctx context.Context, summary string) types.Validation {
	return v.validate(ctx, fmt.Sprintf("X-ray findings include %s.", summary))
}

// ValidateBinary checks a single Normal/Abnormal prediction.
func (v *Validator) ValidateBinary(ctx context.Context, label string, confidence float64) types.Validation {
	return v.validate(ctx, fmt.Sprintf("X-ray finding is %s with %.1f%% confidence.", label, confidence*100))
}

func (v *Validator) validate(ctx context.Context, query string) types.Validation {
	if v.emb == nil || v.kb.Len() == 0 {
		return types.Validation{Status: "Knowledge base uninitialized", MatchCategory: unknownCategory}
	}
	res, err := v.match(ctx, query)
	if err != nil {
		v.log.Warn().Err(err).Msg("semantic validation failed")
		return types.Validation{Status: "Clinical Validation Pending", MatchCategory: unknownCategory}
	}
	return res
}

func (v *Validator) match(ctx context.Context, query string) (types.Validation, error) {
	qv, err := v.emb.Embed(ctx, query)
	if err != nil {
		return types.Validation{}, err
	}
	best, score := unmatchedCategory, 0.0
	var simErr error
	v.kb.each(func(category string, ref []float64) {
		if simErr != nil {
			return
		}
		s, err := Cosine(qv, ref)
		if err != nil {
			simErr = fmt.Errorf("%s: %w", category, err)
			return
		}
		if s > score {
			best, score = category, s
		}
	})
	if simErr != nil {
		return types.Validation{}, simErr
	}
	status := "Clinical Correlation Recommended"
	if score > v.threshold {
		status = "Validated: " + best
	}
	return types.Validation{Status: status, MatchCategory: best, SemanticScore: score}, nil
}

// Cosine returns the cosine similarity of a and b. A zero vector has similarity 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	s := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(s) {
		return 0, fmt.Errorf("similarity is NaN")
	}
	return s, nil
}
