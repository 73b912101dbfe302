package metrics

import (
	"fmt"
	"math"

	"factbench/internal/format"
)

// Report is the metric set written after every sample.
type Report struct {
	Samples                           int      `json:"num_samples"`
	Precision                         float64  `json:"precision"`
	AvgRepromptScore                  *float64 `json:"avg_reprompt_score"`
	StdRepromptScore                  *float64 `json:"std_reprompt_score"`
	AvgRepromptImprovement            *float64 `json:"avg_reprompt_improvement"`
	StdRepromptImprovement            *float64 `json:"std_reprompt_improvement"`
	NumNonHlcntnTriplets              int      `json:"num_non_hlcntn_triplets"`
	NumNonHlcntnTripletsCorrectlyPred int      `json:"num_non_hlcntn_triplets_correctly_predicted"`

	*HallucinationStats
}

// HallucinationStats are reported for hallucination runs only.
type HallucinationStats struct {
	Specificity                    float64 `json:"specificity"`
	DetectionRate                  float64 `json:"hlcntn_detection_rate"`
	NumHlcntnTriplets              int     `json:"num_hlcntn_triplets"`
	NumHlcntnTripletsCorrectlyPred int     `json:"num_hlcntn_triplets_correctly_predicted"`
}

// Compute aggregates preds. Hallucination statistics are filled when any
// prediction comes from a hallucination run.
func Compute(preds []Prediction) *Report {
	r := &Report{Samples: len(preds)}
	supported, counted := 0, 0
	hallucinated := false
	for i := range preds {
		p := &preds[i]
		if p.Hallucinated() {
			hallucinated = true
		}
		for idx, v := range p.FactCheck {
			if p.IsHallucinated(idx) {
				continue
			}
			counted++
			if v {
				supported++
			}
		}
	}
	r.Precision = safeDiv(supported, counted)
	r.NumNonHlcntnTriplets = counted
	r.NumNonHlcntnTripletsCorrectlyPred = supported

	r.AvgRepromptScore, r.StdRepromptScore, r.AvgRepromptImprovement, r.StdRepromptImprovement = repromptStats(preds)

	if hallucinated {
		r.HallucinationStats = Hallucination(preds)
	}
	return r
}

// Precision is the share of supported judgments. Judgments on planted
// hallucinations are left out of both numerator and denominator.
func Precision(preds []Prediction) float64 {
	return Compute(preds).Precision
}

// Hallucination scores how well the checker separates planted
// hallucinations from faithful triplets.
//
// Specificity is the share of non-hallucinated triplets judged supported.
// DetectionRate is the share of hallucinated triplets judged unsupported.
// Both are 0 when their class is empty.
func Hallucination(preds []Prediction) *HallucinationStats {
	var faithful, faithfulKept, planted, plantedCaught int
	for i := range preds {
		p := &preds[i]
		for idx, v := range p.FactCheck {
			if p.IsHallucinated(idx) {
				planted++
				if !v {
					plantedCaught++
				}
				continue
			}
			faithful++
			if v {
				faithfulKept++
			}
		}
	}
	return &HallucinationStats{
		Specificity:                    safeDiv(faithfulKept, faithful),
		DetectionRate:                  safeDiv(plantedCaught, planted),
		NumHlcntnTriplets:              planted,
		NumHlcntnTripletsCorrectlyPred: plantedCaught,
	}
}

// Specificity returns Hallucination(preds).Specificity.
func Specificity(preds []Prediction) float64 {
	return Hallucination(preds).Specificity
}

// repromptStats needs at least two reprompted predictions; otherwise every
// value is nil. Improvements skip predictions whose references or answer
// are malformed.
func repromptStats(preds []Prediction) (avg, std, avgImp, stdImp *float64) {
	var scores, improvements []float64
	for i := range preds {
		p := &preds[i]
		if p.RepromptPrecision == nil {
			continue
		}
		scores = append(scores, *p.RepromptPrecision)
		if p.wellFormed() {
			improvements = append(improvements, *p.RepromptPrecision-p.Precision)
		}
	}
	if len(scores) < 2 {
		return nil, nil, nil, nil
	}
	avg, std = ptr(mean(scores)), ptr(popStddev(scores))
	if len(improvements) > 0 {
		avgImp, stdImp = ptr(mean(improvements)), ptr(popStddev(improvements))
	}
	return avg, std, avgImp, stdImp
}

// FormatReport renders r as a two-column table.
func FormatReport(title string, r *Report, m format.Mode) string {
	tbl := format.NewTable(m, "Metric", "Value").Right(2)
	tbl.Row("samples", r.Samples)
	tbl.Row("precision", fmt.Sprintf("%.4f", r.Precision))
	tbl.Row("non-hallucinated supported", fmt.Sprintf("%d/%d", r.NumNonHlcntnTripletsCorrectlyPred, r.NumNonHlcntnTriplets))
	if h := r.HallucinationStats; h != nil {
		tbl.Row("specificity", fmt.Sprintf("%.4f", h.Specificity))
		tbl.Row("hallucinations caught", fmt.Sprintf("%d/%d", h.NumHlcntnTripletsCorrectlyPred, h.NumHlcntnTriplets))
		tbl.Row("detection rate", fmt.Sprintf("%.4f", h.DetectionRate))
	}
	tbl.Row("avg reprompt score", format.FmtRatio(r.AvgRepromptScore))
	tbl.Row("std reprompt score", format.FmtRatio(r.StdRepromptScore))
	tbl.Row("avg reprompt improvement", format.FmtRatio(r.AvgRepromptImprovement))
	tbl.Row("std reprompt improvement", format.FmtRatio(r.StdRepromptImprovement))
	return format.Section(title, tbl)
}

// safeDiv returns 0 for an empty denominator.
func safeDiv(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// popStddev is the population standard deviation.
func popStddev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(vals)))
}

func ptr(v float64) *float64 { return &v }
