package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"factbench/internal/datastore"
	"factbench/internal/factcheck"
	"factbench/internal/format"
	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/metrics"
	"factbench/internal/prompt"
	"factbench/internal/triplet"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultMaxLength bounds segments when segment_triplets is called without
// max_length.
const DefaultMaxLength = 100

// Options configures the tool server. Client is only needed for the
// model-backed checkers.
type Options struct {
	Client llm.Client
	Bank   *prompt.Bank
	Logger *slog.Logger
}

// Server wraps the MCP SDK server and exposes the fact-checking tools.
type Server struct {
	MCPServer *sdkmcp.Server
	ID        string

	opts Options
	log  *slog.Logger
}

// NewServer creates an MCP server with triplet checking, segmentation and
// metric tools.
func NewServer(o Options) *Server {
	if o.Bank == nil {
		o.Bank = prompt.Default()
	}
	s := &Server{
		ID:   uuid.NewString(),
		opts: o,
		log:  logging.OrDiscard(o.Logger),
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "factbench", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_triplets",
		Description: "Fact-check answer triplets against reference triplet segments. Returns one judgment per answer triplet and the precision.",
	}, s.handleCheckTriplets)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "segment_triplets",
		Description: "Group per-passage reference triplets into segments of at most max_length triplets, keeping passages whole.",
	}, s.handleSegmentTriplets)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "compute_metrics",
		Description: "Compute precision, hallucination and reprompt metrics over a list of predictions.",
	}, s.handleComputeMetrics)
}

// --- Tool input/output types ---

type checkTripletsInput struct {
	AnswerTriplets    []triplet.Triplet   `json:"answer_triplets" jsonschema:"answer triplets as [subject, predicate, object] lists"`
	ReferenceTriplets [][]triplet.Triplet `json:"reference_triplets" jsonschema:"reference triplet segments; each segment is checked separately and the judgments merged"`
	Checker           string              `json:"checker,omitempty" jsonschema:"checker name (exact_match, partial_match, llm, llm_split); default exact_match"`
	PartialThreshold  int                 `json:"partial_threshold,omitempty" jsonschema:"agreeing fields needed by partial_match (default 2)"`
}

type checkTripletsOutput struct {
	Judgments   map[string]bool `json:"fact_check_prediction_binary"`
	Precision   float64         `json:"precision"`
	Unsupported []int           `json:"false_triplet_index,omitempty"`
}

type passageTriplets struct {
	PassageID int               `json:"passage_id" jsonschema:"passage identifier, used in log lines only"`
	Triplets  []triplet.Triplet `json:"triplets" jsonschema:"triplets extracted from the passage"`
}

type segmentTripletsInput struct {
	Passages  []passageTriplets `json:"passages" jsonschema:"per-passage triplet lists in passage order"`
	MaxLength int               `json:"max_length,omitempty" jsonschema:"maximum triplets per segment (default 100)"`
}

type segmentTripletsOutput struct {
	Segments    [][]triplet.Triplet `json:"segments,omitempty"`
	NumSegments int                 `json:"num_segments"`
}

type computeMetricsInput struct {
	PredictionsJSON string `json:"predictions_json,omitempty" jsonschema:"JSON array of prediction records"`
	PredictionsPath string `json:"predictions_path,omitempty" jsonschema:"path to a predictions.json file written by a run"`
	Format          string `json:"format,omitempty" jsonschema:"table format (ascii, markdown); default markdown"`
}

type computeMetricsOutput struct {
	Samples                int      `json:"num_samples"`
	Precision              float64  `json:"precision"`
	Specificity            *float64 `json:"specificity,omitempty"`
	DetectionRate          *float64 `json:"hlcntn_detection_rate,omitempty"`
	AvgRepromptScore       *float64 `json:"avg_reprompt_score,omitempty"`
	AvgRepromptImprovement *float64 `json:"avg_reprompt_improvement,omitempty"`
	Table                  string   `json:"table"`
}

// --- Handlers ---

func (s *Server) handleCheckTriplets(ctx context.Context, _ *sdkmcp.CallToolRequest, input checkTripletsInput) (*sdkmcp.CallToolResult, checkTripletsOutput, error) {
	if len(input.AnswerTriplets) == 0 {
		return nil, checkTripletsOutput{}, fmt.Errorf("answer_triplets is required")
	}
	name := input.Checker
	if name == "" {
		name = factcheck.ModelExactMatch
	}
	if factcheck.UsesModel(name) && s.opts.Client == nil {
		return nil, checkTripletsOutput{}, fmt.Errorf("checker %s needs a model; start the server with a configured model", name)
	}
	checker, err := factcheck.New(name, factcheck.Options{
		Client:           s.opts.Client,
		Bank:             s.opts.Bank,
		PartialThreshold: input.PartialThreshold,
		Logger:           s.log,
	})
	if err != nil {
		return nil, checkTripletsOutput{}, err
	}

	result, _ := checker.Check(ctx, input.AnswerTriplets, input.ReferenceTriplets)
	if len(result) == 0 {
		return nil, checkTripletsOutput{}, fmt.Errorf("check_triplets: %s produced no judgments", name)
	}

	out := checkTripletsOutput{
		Judgments: make(map[string]bool, len(result)),
		Precision: result.Precision(),
	}
	for _, i := range result.Indexes() {
		out.Judgments[strconv.Itoa(i)] = result[i]
		if !result[i] {
			out.Unsupported = append(out.Unsupported, i)
		}
	}
	s.log.Info("check_triplets", "session", s.ID, "checker", name,
		"answer_triplets", len(input.AnswerTriplets), "precision", out.Precision)
	return nil, out, nil
}

func (s *Server) handleSegmentTriplets(_ context.Context, _ *sdkmcp.CallToolRequest, input segmentTripletsInput) (*sdkmcp.CallToolResult, segmentTripletsOutput, error) {
	maxLength := input.MaxLength
	if maxLength == 0 {
		maxLength = DefaultMaxLength
	}
	if maxLength < 0 {
		return nil, segmentTripletsOutput{}, fmt.Errorf("max_length must be positive, got %d", maxLength)
	}
	batches := make([]triplet.Batch, len(input.Passages))
	for i, p := range input.Passages {
		batches[i] = triplet.Batch{PassageID: p.PassageID, Triplets: p.Triplets}
	}
	segments := triplet.Segment(batches, maxLength, s.log)
	return nil, segmentTripletsOutput{Segments: segments, NumSegments: len(segments)}, nil
}

func (s *Server) handleComputeMetrics(_ context.Context, _ *sdkmcp.CallToolRequest, input computeMetricsInput) (*sdkmcp.CallToolResult, computeMetricsOutput, error) {
	var preds []metrics.Prediction
	switch {
	case input.PredictionsJSON != "":
		if err := json.Unmarshal([]byte(input.PredictionsJSON), &preds); err != nil {
			return nil, computeMetricsOutput{}, fmt.Errorf("predictions_json: %w", err)
		}
	case input.PredictionsPath != "":
		if err := datastore.ReadJSON(input.PredictionsPath, &preds); err != nil {
			return nil, computeMetricsOutput{}, fmt.Errorf("predictions_path: %w", err)
		}
	default:
		return nil, computeMetricsOutput{}, fmt.Errorf("one of predictions_json or predictions_path is required")
	}

	mode := format.Markdown
	if input.Format != "" {
		m, err := format.ParseMode(input.Format)
		if err != nil {
			return nil, computeMetricsOutput{}, err
		}
		mode = m
	}

	r := metrics.Compute(preds)
	out := computeMetricsOutput{
		Samples:                r.Samples,
		Precision:              r.Precision,
		AvgRepromptScore:       r.AvgRepromptScore,
		AvgRepromptImprovement: r.AvgRepromptImprovement,
		Table:                  metrics.FormatReport("", r, mode),
	}
	if h := r.HallucinationStats; h != nil {
		out.Specificity = &h.Specificity
		out.DetectionRate = &h.DetectionRate
	}
	s.log.Info("compute_metrics", "session", s.ID, "samples", r.Samples, "precision", r.Precision)
	return nil, out, nil
}
