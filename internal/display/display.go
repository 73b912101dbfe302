// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output and logs. Keep raw codes for JSON
// fields, file names and configuration values.
package display

// --- Runs ---

var runs = map[string]string{
	"original": "Original",
	"hlcntn":   "Hallucination",
}

// Run returns the human-readable name for a run code.
// "hlcntn" -> "Hallucination".
func Run(code string) string {
	return lookup(runs, code)
}

// --- Tasks ---

var tasks = map[string]string{
	"triplet_generator":            "Triplet Generator",
	"answer_generator":             "Answer Generator",
	"fact_checker":                 "Fact Checker",
	"hallucination_data_generator": "Hallucination Data Generator",
	"reprompter":                   "Reprompter",
}

// Task returns the human-readable name for a component task.
func Task(code string) string {
	return lookup(tasks, code)
}

// TaskWithCode returns "Fact Checker (fact_checker)" format.
func TaskWithCode(code string) string {
	return withCode(tasks, code)
}

// --- Models ---

var models = map[string]string{
	"exact_match":      "Exact Match",
	"partial_match":    "Partial Match",
	"base_llm":         "LLM",
	"llm":              "LLM",
	"llm_split":        "LLM, one triplet per call",
	"llm_n_shot":       "LLM with demonstrations",
	"llm_n_shot_split": "LLM with demonstrations, one triplet per call",
}

// Model returns the human-readable name for a component model name.
func Model(code string) string {
	return lookup(models, code)
}

// ModelWithCode returns "Exact Match (exact_match)" format.
func ModelWithCode(code string) string {
	return withCode(models, code)
}

// --- Retry reasons ---

var reasons = map[string]string{
	"empty_fact_check":        "No judgments",
	"length_mismatch":         "Judgment count mismatch",
	"index_mismatch":          "Judgment index mismatch",
	"empty_answer_triplet":    "Empty answer triplet",
	"empty_reference_triplet": "Empty reference triplet",
	"no_reference_triplets":   "No reference triplets",
	"no_evidence":             "Answer claims no evidence",
	"no_hallucination":        "No hallucination planted",
	"generation_error":        "Generation error",
}

// Reason returns the human-readable name for a retry reason label.
func Reason(code string) string {
	return lookup(reasons, code)
}

func lookup(names map[string]string, code string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

func withCode(names map[string]string, code string) string {
	if name, ok := names[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}
