// Package prompt holds the named prompt templates used for every model call.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"factbench/internal/datastore"
	"factbench/internal/format"
	"factbench/internal/llm"
)

// Template names in the default bank.
const (
	TripletGeneration       = "triplet_generation"
	AnswerGeneration        = "answer_generation"
	TripletMatch            = "triplet_match"
	TripletMatchSplit       = "triplet_match_split"
	RepromptTripletMatch    = "reprompt_triplet_match"
	HallucinationGeneration = "hallucination_generation"
)

//go:embed prompts.yaml
var defaultBank []byte

// Template is a system/human message pair.
type Template struct {
	System string `yaml:"system" json:"system"`
	Human  string `yaml:"human" json:"human"`
}

// Bank is an immutable set of named templates.
type Bank struct {
	templates map[string]Template
}

// bankFile is the on-disk layout. The human/system maps are the older
// layout where each message lives under {"format": ...} and the system
// message of template x is named x_instruction.
type bankFile struct {
	Templates map[string]Template          `yaml:"templates" json:"templates"`
	Human     map[string]map[string]string `yaml:"human,omitempty" json:"human,omitempty"`
	System    map[string]map[string]string `yaml:"system,omitempty" json:"system,omitempty"`
}

// Default returns the embedded bank.
func Default() *Bank {
	b, err := Parse(defaultBank)
	if err != nil {
		panic(fmt.Sprintf("prompt: embedded bank: %v", err))
	}
	return b
}

// Load reads a bank from a YAML or JSON file and layers it over the
// embedded defaults.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read %s: %w", path, err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("prompt: %s: %w", filepath.Base(path), err)
	}
	b := Default()
	for name, t := range override.templates {
		b.templates[name] = t
	}
	return b, nil
}

// Parse decodes a bank document. JSON is accepted since it is valid YAML.
func Parse(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}
	b := &Bank{templates: make(map[string]Template, len(f.Templates)+len(f.Human))}
	for name, t := range f.Templates {
		b.templates[name] = t
	}
	for name, h := range f.Human {
		t := b.templates[name]
		t.Human = h["format"]
		if s, ok := f.System[name+"_instruction"]; ok {
			t.System = s["format"]
		}
		b.templates[name] = t
	}
	if len(b.templates) == 0 {
		return nil, fmt.Errorf("bank has no templates")
	}
	return b, nil
}

// Names lists template names in order.
func (b *Bank) Names() []string {
	return format.SortedKeys(b.templates)
}

// Get returns the named template.
func (b *Bank) Get(name string) (Template, bool) {
	t, ok := b.templates[name]
	return t, ok
}

// Render fills the named template and returns the system and user messages.
// A system message that renders blank is omitted.
func (b *Bank) Render(name string, vars map[string]string) ([]llm.Message, error) {
	t, ok := b.templates[name]
	if !ok {
		return nil, fmt.Errorf("prompt: unknown template %q", name)
	}
	system, err := Fill(t.System, vars)
	if err != nil {
		return nil, fmt.Errorf("prompt: %s system: %w", name, err)
	}
	human, err := Fill(t.Human, vars)
	if err != nil {
		return nil, fmt.Errorf("prompt: %s human: %w", name, err)
	}
	var msgs []llm.Message
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, llm.System(strings.TrimSpace(system)))
	}
	return append(msgs, llm.User(strings.TrimSpace(human))), nil
}

// Variables lists the placeholders a template uses.
func (b *Bank) Variables(name string) []string {
	t := b.templates[name]
	vars := append(placeholders(t.System), placeholders(t.Human)...)
	slices.Sort(vars)
	return slices.Compact(vars)
}

// Snapshot writes the bank to path as JSON, for the experiment record.
func (b *Bank) Snapshot(path string) error {
	return datastore.WriteJSON(path, bankFile{Templates: b.templates})
}
