package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"factbench/internal/demo"
	"factbench/internal/llm/llmtest"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

func TestLLMGenerator_Generate(t *testing.T) {
	tests := []struct {
		name  string
		reply any
		want  []triplet.Triplet
		err   bool
	}{
		{
			name:  "json list",
			reply: `Thinking... [FINAL ANSWER] [["BRCA1","is","tumor suppressor"],["BRCA1","located on","chromosome 17"]]`,
			want:  []triplet.Triplet{triplet.New("BRCA1", "is", "tumor suppressor"), triplet.New("BRCA1", "located on", "chromosome 17")},
		},
		{
			name:  "unparseable gives sentinel",
			reply: `[FINAL ANSWER] BRCA1 is a tumor suppressor`,
			want:  []triplet.Triplet{triplet.Empty},
		},
		{
			name:  "short element gives sentinel in place",
			reply: `[["a","b","c"],["d"]]`,
			want:  []triplet.Triplet{triplet.New("a", "b", "c"), triplet.Empty},
		},
		{
			name:  "model error",
			reply: errors.New("rate limited"),
			err:   true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := llmtest.NewScripted(tc.reply)
			g := NewLLM(client, prompt.Default(), nil, nil)
			got, err := g.Generate(context.Background(), "BRCA1 is a tumor suppressor on chromosome 17.")
			if (err != nil) != tc.err {
				t.Fatalf("err = %v, want error %v", err, tc.err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("triplets (-want +got):\n%s", diff)
			}
			if !strings.Contains(client.LastUserMessage(), "BRCA1 is a tumor suppressor") {
				t.Errorf("prompt missing input text: %s", client.LastUserMessage())
			}
		})
	}
}

func TestLLMGenerator_FewShotBlock(t *testing.T) {
	pool := demo.NewPool(map[string]map[int]demo.Demo{
		demo.TaskTripletGenerator: {1: {Text: "example one"}, 2: {Text: "example two"}},
	}, 1)
	client := llmtest.NewScripted(`[]`)
	g := NewLLM(client, prompt.Default(), &demo.Shots{Pool: pool, Task: demo.TaskTripletGenerator, N: 2, Mode: demo.SamplingAll}, nil)

	ctx := demo.WithSampleID(context.Background(), 2)
	if _, err := g.Generate(ctx, "text"); err != nil {
		t.Fatal(err)
	}
	system := client.Calls[0][0].Content
	if !strings.Contains(system, "[BEGIN FEW-SHOT-EXAMPLES]") || !strings.Contains(system, "example one") {
		t.Errorf("system prompt missing demonstrations:\n%s", system)
	}
	if strings.Contains(system, "example two") {
		t.Errorf("demonstration of the current sample leaked:\n%s", system)
	}
}
