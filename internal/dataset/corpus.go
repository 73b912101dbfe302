// Package dataset loads the BioASQ corpus and QA set and assembles
// experiment samples with their reference triplets.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Passage is one corpus document.
type Passage struct {
	ID   int    `json:"id"`
	Text string `json:"passage"`
}

// Corpus is the immutable passage collection.
type Corpus struct {
	passages map[int]string
	ids      []int
}

// NewCorpus builds a corpus, dropping "nan" passages and newlines.
func NewCorpus(passages []Passage) *Corpus {
	c := &Corpus{passages: make(map[int]string, len(passages))}
	for _, p := range passages {
		text := strings.TrimSpace(p.Text)
		if text == "" || strings.EqualFold(text, "nan") {
			continue
		}
		text = strings.Join(strings.Fields(strings.ReplaceAll(text, "\n", " ")), " ")
		if _, dup := c.passages[p.ID]; !dup {
			c.ids = append(c.ids, p.ID)
		}
		c.passages[p.ID] = text
	}
	slices.Sort(c.ids)
	return c
}

// LoadCorpus reads a corpus file: a JSON array of {"id", "passage"}
// objects, or an object mapping id to passage text.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read corpus: %w", err)
	}
	data = bytes.TrimSpace(data)
	var passages []Passage
	if len(data) > 0 && data[0] == '{' {
		var byID map[string]string
		if err := json.Unmarshal(data, &byID); err != nil {
			return nil, fmt.Errorf("dataset: decode corpus %s: %w", path, err)
		}
		for k, v := range byID {
			id, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("dataset: corpus id %q is not an integer", k)
			}
			passages = append(passages, Passage{ID: id, Text: v})
		}
	} else if err := json.Unmarshal(data, &passages); err != nil {
		return nil, fmt.Errorf("dataset: decode corpus %s: %w", path, err)
	}
	return NewCorpus(passages), nil
}

// Passage returns the text of id.
func (c *Corpus) Passage(id int) (string, bool) {
	t, ok := c.passages[id]
	return t, ok
}

// IDs returns every passage id in ascending order.
func (c *Corpus) IDs() []int { return c.ids }

// Len returns the number of passages.
func (c *Corpus) Len() int { return len(c.ids) }
