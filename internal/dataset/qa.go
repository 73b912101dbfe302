package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"factbench/internal/triplet"
)

// QARecord is one question with its gold answer and relevant passages.
// ReferenceDocuments and ReferenceTriplets are filled per experiment.
type QARecord struct {
	ID                 int                 `json:"id"`
	Question           string              `json:"question"`
	Answer             string              `json:"answer"`
	RelevantPassageIDs PassageIDs          `json:"relevant_passage_ids"`
	ReferenceDocuments []string            `json:"reference_documents,omitempty"`
	ReferenceTriplets  [][]triplet.Triplet `json:"reference_triplets,omitempty"`
}

// PassageIDs decodes from a JSON array of ids or from the string form
// "[1, 2, 3]" used by the published QA split.
type PassageIDs []int

func (p *PassageIDs) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		data = []byte(s)
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("relevant_passage_ids: %w", err)
	}
	*p = ids
	return nil
}

// KeywordAll disables the question keyword filter.
const KeywordAll = "all"

// LoadQA reads a JSON array of QA records, keeps questions containing
// keyword (case-insensitive; "all" or "" keeps every question), restricts
// relevant passages to those in corpus and drops records left with none.
func LoadQA(path, keyword string, corpus *Corpus) ([]QARecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read qa: %w", err)
	}
	var records []QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("dataset: decode qa %s: %w", path, err)
	}
	return FilterQA(records, keyword, corpus), nil
}

// FilterQA applies the keyword and corpus filters of LoadQA.
func FilterQA(records []QARecord, keyword string, corpus *Corpus) []QARecord {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == KeywordAll {
		kw = ""
	}
	out := make([]QARecord, 0, len(records))
	for _, r := range records {
		if kw != "" && !strings.Contains(strings.ToLower(r.Question), kw) {
			continue
		}
		var ids PassageIDs
		for _, id := range r.RelevantPassageIDs {
			if _, ok := corpus.Passage(id); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		r.RelevantPassageIDs = ids
		out = append(out, r)
	}
	return out
}
