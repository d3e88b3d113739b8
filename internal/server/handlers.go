package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/anchor"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/chromatogram"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/evaluate"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/interval"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/loss"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/proposal"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/render"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/target"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "chromatogram_load", "peaks_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Chromatogram Information
	case "chromatogram_load":
		return s.handleChromatogramLoad(args)
	case "chromatogram_label_window":
		return s.handleChromatogramLabelWindow(args)
	case "chromatogram_plot":
		return s.handleChromatogramPlot(args)

	// Model Operations
	case "anchors_describe":
		return s.handleAnchorsDescribe(args)
	case "peaks_detect":
		return s.handlePeaksDetect(args)
	case "peaks_assign_targets":
		return s.handlePeaksAssignTargets(args)
	case "peaks_training_loss":
		return s.handlePeaksTrainingLoss(args)

	// Evaluation
	case "peaks_evaluate":
		return s.handlePeaksEvaluate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating missing arguments as an empty object.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// loadSequence loads path and resamples it to the model's sequence length.
func (s *Server) loadSequence(path string) (*chromatogram.Chromatogram, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	chrom, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return chrom.Resample(s.cfg.SequenceLength)
}

// peakWindow is an optional retention-time ground-truth window.
type peakWindow struct {
	Left  *float64 `json:"left,omitempty"`
	Right *float64 `json:"right,omitempty"`
}

// groundTruth converts the window to index intervals on chrom's time grid.
// A window that is absent or contains no point yields no ground truth.
func (w peakWindow) groundTruth(chrom *chromatogram.Chromatogram) ([]interval.Interval, error) {
	if w.Left == nil && w.Right == nil {
		return nil, nil
	}
	if w.Left == nil || w.Right == nil {
		return nil, fmt.Errorf("both left and right are required for a peak window")
	}
	iv, ok := chromatogram.LabelWindow(chrom.Times, *w.Left, *w.Right)
	if !ok {
		return nil, nil
	}
	return []interval.Interval{iv}, nil
}

// === Chromatogram Information Handlers ===

type chromatogramLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleChromatogramLoad(args json.RawMessage) (interface{}, error) {
	var a chromatogramLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return chromatogram.LoadInfo(s.cache, a.Path)
}

type chromatogramLabelWindowArgs struct {
	Path string `json:"path"`
	peakWindow
	Resample bool `json:"resample"`
}

type labelWindowResult struct {
	Points    int                `json:"points"`
	Found     bool               `json:"found"`
	Interval  *interval.Interval `json:"interval,omitempty"`
	Width     float64            `json:"width,omitempty"`
	LeftTime  float64            `json:"left_time,omitempty"`
	RightTime float64            `json:"right_time,omitempty"`
}

func (s *Server) handleChromatogramLabelWindow(args json.RawMessage) (interface{}, error) {
	var a chromatogramLabelWindowArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Left == nil || a.Right == nil {
		return nil, fmt.Errorf("left and right are required")
	}

	var chrom *chromatogram.Chromatogram
	var err error
	if a.Resample {
		chrom, err = s.loadSequence(a.Path)
	} else {
		chrom, err = s.cache.Load(a.Path)
	}
	if err != nil {
		return nil, err
	}

	res := &labelWindowResult{Points: chrom.Len()}
	iv, ok := chromatogram.LabelWindow(chrom.Times, *a.Left, *a.Right)
	if ok {
		res.Found = true
		res.Interval = &iv
		res.Width = iv.Width()
		res.LeftTime, res.RightTime = chrom.TimeWindow(iv)
	}
	return res, nil
}

type chromatogramPlotArgs struct {
	Path string `json:"path"`
	peakWindow
	Detect      *bool   `json:"detect,omitempty"`
	TopN        int     `json:"top_n"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ShowScores  *bool   `json:"show_scores,omitempty"`
	WindowStart *int    `json:"window_start,omitempty"`
	WindowEnd   *int    `json:"window_end,omitempty"`
	SavePath    string  `json:"save_path"`
	TruthColor  string  `json:"truth_color"`
	Background  string  `json:"background"`
	Scale       float64 `json:"scale"`
}

func (s *Server) handleChromatogramPlot(args json.RawMessage) (interface{}, error) {
	var a chromatogramPlotArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	chrom, err := s.loadSequence(a.Path)
	if err != nil {
		return nil, err
	}
	gts, err := a.groundTruth(chrom)
	if err != nil {
		return nil, err
	}

	var props []proposal.Proposal
	if a.Detect == nil || *a.Detect {
		props, err = s.detector.Detect(chrom.Sequence())
		if err != nil {
			return nil, err
		}
	}

	opts := render.DefaultOptions()
	if a.TopN > 0 {
		opts.TopN = a.TopN
	}
	if a.Width > 0 {
		opts.Width = a.Width
	}
	if a.Height > 0 {
		opts.Height = a.Height
	}
	if a.Scale > 0 {
		opts.Width = int(float64(opts.Width) * a.Scale)
		opts.Height = int(float64(opts.Height) * a.Scale)
	}
	if a.ShowScores != nil {
		opts.ShowScores = *a.ShowScores
	}
	if a.TruthColor != "" {
		opts.TruthColor = a.TruthColor
	}
	if a.Background != "" {
		opts.Background = a.Background
	}
	if a.WindowStart != nil && a.WindowEnd != nil {
		opts.Window = &interval.Interval{Start: float64(*a.WindowStart), End: float64(*a.WindowEnd)}
	}
	opts.SavePath = a.SavePath

	return render.Plot(chrom, gts, props, opts)
}

// === Model Operation Handlers ===

type anchorsDescribeArgs struct {
	IncludeAnchors bool `json:"include_anchors"`
}

type anchorsDescribeResult struct {
	anchor.Summary
	SequenceLength int             `json:"sequence_length"`
	Proposal       proposal.Config `json:"proposal"`
	Target         target.Config   `json:"target"`
	Loss           loss.Config     `json:"loss"`
	Anchors        []anchor.Anchor `json:"anchors,omitempty"`
}

func (s *Server) handleAnchorsDescribe(args json.RawMessage) (interface{}, error) {
	var a anchorsDescribeArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	bank := s.detector.Bank()
	res := &anchorsDescribeResult{
		Summary:        bank.Summarize(),
		SequenceLength: s.cfg.SequenceLength,
		Proposal:       s.cfg.Proposal,
		Target:         s.cfg.Target,
		Loss:           s.cfg.Loss,
	}
	if a.IncludeAnchors {
		res.Anchors = bank.All()
	}
	return res, nil
}

type peaksDetectArgs struct {
	Path string `json:"path"`
	TopN int    `json:"top_n"`
}

// detectedPeak is a proposal with its retention-time bounds.
type detectedPeak struct {
	proposal.Proposal
	LeftTime  float64 `json:"left_time"`
	RightTime float64 `json:"right_time"`
}

type peaksDetectResult struct {
	RunID     string         `json:"run_id"`
	Path      string         `json:"path"`
	Total     int            `json:"total"`
	Peaks     []detectedPeak `json:"peaks"`
	NoPeaks   bool           `json:"no_peaks,omitempty"`
	TopScore  float64        `json:"top_score,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
}

func (s *Server) handlePeaksDetect(args json.RawMessage) (interface{}, error) {
	var a peaksDetectArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TopN <= 0 {
		a.TopN = 5
	}
	chrom, err := s.loadSequence(a.Path)
	if err != nil {
		return nil, err
	}
	props, err := s.detector.Detect(chrom.Sequence())
	if err != nil {
		return nil, err
	}

	res := &peaksDetectResult{
		RunID: uuid.NewString(),
		Path:  a.Path,
		Total: len(props),
		Peaks: []detectedPeak{},
	}
	if len(props) == 0 {
		res.NoPeaks = true
		return res, nil
	}
	res.TopScore = props[0].Score
	if len(props) > a.TopN {
		props = props[:a.TopN]
		res.Truncated = true
	}
	for _, p := range props {
		left, right := chrom.TimeWindow(p.Interval())
		res.Peaks = append(res.Peaks, detectedPeak{Proposal: p, LeftTime: left, RightTime: right})
	}
	return res, nil
}

type assignSample struct {
	Path string `json:"path"`
	peakWindow
}

type peaksAssignTargetsArgs struct {
	Samples []assignSample `json:"samples"`
}

type positiveAnchor struct {
	Anchor      int               `json:"anchor"`
	Interval    interval.Interval `json:"interval"`
	IoU         float64           `json:"iou"`
	GroundTruth int               `json:"ground_truth"`
	Delta       interval.Delta    `json:"delta"`
}

type assignTargetsSample struct {
	Path        string              `json:"path"`
	GroundTruth []interval.Interval `json:"ground_truth"`
	Counts      target.Counts       `json:"counts"`
	Positives   []positiveAnchor    `json:"positives"`
}

func (s *Server) handlePeaksAssignTargets(args json.RawMessage) (interface{}, error) {
	var a peaksAssignTargetsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Samples) == 0 {
		return nil, fmt.Errorf("at least one sample is required")
	}

	samples := make([]target.Sample, len(a.Samples))
	for i, in := range a.Samples {
		chrom, err := s.loadSequence(in.Path)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		gts, err := in.groundTruth(chrom)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		samples[i] = target.Sample{GroundTruth: gts, SeqLen: chrom.Len()}
	}

	bank := s.trainer.Bank()
	results, err := target.AssignBatch(bank, samples, s.cfg.Target, 0)
	if err != nil {
		return nil, err
	}

	out := make([]assignTargetsSample, len(results))
	for i, tg := range results {
		out[i] = assignTargetsSample{
			Path:        a.Samples[i].Path,
			GroundTruth: samples[i].GroundTruth,
			Counts:      tg.Counts(),
			Positives:   []positiveAnchor{},
		}
		for _, idx := range tg.Positives() {
			out[i].Positives = append(out[i].Positives, positiveAnchor{
				Anchor:      idx,
				Interval:    bank.Interval(idx),
				IoU:         tg.BestIoU[idx],
				GroundTruth: tg.Matched[idx],
				Delta:       tg.Deltas[idx],
			})
		}
	}
	return map[string]interface{}{"samples": out}, nil
}

type peaksTrainingLossArgs struct {
	Path string `json:"path"`
	peakWindow
}

type trainingLossResult struct {
	RunID       string              `json:"run_id"`
	Path        string              `json:"path"`
	GroundTruth []interval.Interval `json:"ground_truth"`
	Loss        *loss.Breakdown     `json:"loss"`
}

func (s *Server) handlePeaksTrainingLoss(args json.RawMessage) (interface{}, error) {
	var a peaksTrainingLossArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	chrom, err := s.loadSequence(a.Path)
	if err != nil {
		return nil, err
	}
	gts, err := a.groundTruth(chrom)
	if err != nil {
		return nil, err
	}
	b, err := s.trainer.Loss(chrom.Sequence(), gts)
	if err != nil {
		return nil, err
	}
	if gts == nil {
		gts = []interval.Interval{}
	}
	return &trainingLossResult{
		RunID:       uuid.NewString(),
		Path:        a.Path,
		GroundTruth: gts,
		Loss:        b,
	}, nil
}

// === Evaluation Handlers ===

type peaksEvaluateArgs struct {
	Path               string            `json:"path"`
	Records            []evaluate.Record `json:"records"`
	ReferenceThreshold *float64          `json:"reference_threshold,omitempty"`
	ModelThreshold     *float64          `json:"model_threshold,omitempty"`
	MinPoints          int               `json:"min_points"`
	Exclude            []string          `json:"exclude"`
	ListOutcomes       bool              `json:"list_outcomes"`
}

func (s *Server) handlePeaksEvaluate(args json.RawMessage) (interface{}, error) {
	var a peaksEvaluateArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	records := a.Records
	if a.Path != "" {
		f, err := os.Open(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open evaluation file: %w", err)
		}
		defer f.Close()
		fromFile, err := evaluate.ReadRecords(f)
		if err != nil {
			return nil, err
		}
		records = append(records, fromFile...)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("path or records is required")
	}

	opts := evaluate.DefaultOptions()
	if a.ReferenceThreshold != nil {
		opts.ReferenceThreshold = *a.ReferenceThreshold
	}
	if a.ModelThreshold != nil {
		opts.ModelThreshold = *a.ModelThreshold
	}
	if a.MinPoints > 0 {
		opts.MinPoints = a.MinPoints
	}
	if len(a.Exclude) > 0 {
		opts.Exclude = make(map[string]bool, len(a.Exclude))
		for _, seq := range a.Exclude {
			opts.Exclude[seq] = true
		}
	}

	stats := evaluate.Tally(records, opts)
	if !a.ListOutcomes {
		stats.Outcomes = nil
	}
	return stats, nil
}
