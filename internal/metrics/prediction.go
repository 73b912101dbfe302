// Package metrics aggregates per-sample fact-check predictions into run
// metrics: precision, specificity and reprompt statistics.
package metrics

import (
	"factbench/internal/factcheck"
	"factbench/internal/triplet"
)

// Prediction is the persisted record of one evaluated sample.
type Prediction struct {
	Idx                int                 `json:"idx"`
	Question           string              `json:"question"`
	GeneratedAnswer    string              `json:"generated_answer"`
	AnswerTriplets     []triplet.Triplet   `json:"answer_triplets"`
	FactCheck          factcheck.Result    `json:"fact_check_prediction_binary"`
	Precision          float64             `json:"precision"`
	ReferenceDocuments []string            `json:"reference_documents"`
	ReferenceTriplets  [][]triplet.Triplet `json:"reference_triplets"`

	// Hallucination runs only.
	GeneratedNonHlcntnAnswer string            `json:"generated_non_hlcntn_answer,omitempty"`
	GeneratedHlcntnAnswer    string            `json:"generated_hlcntn_answer,omitempty"`
	NonHlcntnTriplets        []triplet.Triplet `json:"non_hlcntn_triplets,omitempty"`
	HlcntnTriplets           []triplet.Triplet `json:"hlcntn_triplets,omitempty"`
	HlcntnTripletIndex       []bool            `json:"hlcntn_triplet_index,omitempty"`

	// Set when the reprompter produced a usable result.
	RepromptFactCheck factcheck.Result `json:"reprompt_fact_check_prediction_binary,omitempty"`
	RepromptPrecision *float64         `json:"reprompt_precision,omitempty"`
}

// Hallucinated reports whether p comes from a hallucination run.
func (p *Prediction) Hallucinated() bool { return len(p.HlcntnTripletIndex) > 0 }

// IsHallucinated reports whether answer triplet i is a planted hallucination.
func (p *Prediction) IsHallucinated(i int) bool {
	return i >= 0 && i < len(p.HlcntnTripletIndex) && p.HlcntnTripletIndex[i]
}

// SetReprompt records a reprompt result and its precision.
func (p *Prediction) SetReprompt(r factcheck.Result) {
	if len(r) == 0 {
		return
	}
	prec := r.Precision()
	p.RepromptFactCheck = r
	p.RepromptPrecision = &prec
}

// wellFormed reports whether an answer was generated and no reference
// triplet is the parse-failure sentinel.
func (p *Prediction) wellFormed() bool {
	if p.GeneratedAnswer == "" {
		return false
	}
	for _, seg := range p.ReferenceTriplets {
		if triplet.HasEmpty(seg) {
			return false
		}
	}
	return true
}
