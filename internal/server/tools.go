package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the chromatogram CSV file (time column followed by one column per transition)",
	}
}

func windowProperties(props map[string]interface{}) map[string]interface{} {
	props["left"] = map[string]interface{}{
		"type":        "number",
		"description": "Left retention-time boundary of the reference peak",
	}
	props["right"] = map[string]interface{}{
		"type":        "number",
		"description": "Right retention-time boundary of the reference peak",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Chromatogram Information
		{
			Name:        "chromatogram_load",
			Description: "Load a chromatogram CSV file and return its point count, traces, time range and apex.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "chromatogram_label_window",
			Description: "Convert a retention-time peak window into the index interval of the points it covers.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": windowProperties(map[string]interface{}{
					"path": pathProperty(),
					"resample": map[string]interface{}{
						"type":        "boolean",
						"description": "Resample to the model sequence length before labeling. Default false",
						"default":     false,
					},
				}),
				"required": []string{"path", "left", "right"},
			},
		},
		{
			Name:        "chromatogram_plot",
			Description: "Plot a chromatogram with its detected peak proposals and optional reference window, returned as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": windowProperties(map[string]interface{}{
					"path": pathProperty(),
					"detect": map[string]interface{}{
						"type":        "boolean",
						"description": "Run peak detection and draw the proposals. Default true",
						"default":     true,
					},
					"top_n": map[string]interface{}{
						"type":        "integer",
						"description": "Number of proposals to draw (default 5)",
						"default":     5,
					},
					"width":  map[string]interface{}{"type": "integer", "description": "Image width in pixels (default 800)"},
					"height": map[string]interface{}{"type": "integer", "description": "Image height in pixels (default 400)"},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor applied to width and height. Default 1.0",
						"default":     1.0,
					},
					"show_scores":  map[string]interface{}{"type": "boolean", "description": "Label proposals with their scores. Default true"},
					"window_start": map[string]interface{}{"type": "integer", "description": "First point index of a zoomed view"},
					"window_end":   map[string]interface{}{"type": "integer", "description": "Last point index of a zoomed view"},
					"truth_color":  map[string]interface{}{"type": "string", "description": "Hex color of the reference shading, e.g. #2ca02c50"},
					"background":   map[string]interface{}{"type": "string", "description": "Hex background color. Default #ffffff"},
					"save_path":    map[string]interface{}{"type": "string", "description": "Optional file path to also write the PNG to"},
				}),
				"required": []string{"path"},
			},
		},

		// Model Operations
		{
			Name:        "anchors_describe",
			Description: "Describe the anchor bank (positions, scales, widths) and the detection, assignment and loss settings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"include_anchors": map[string]interface{}{
						"type":        "boolean",
						"description": "Include every anchor in the response. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "peaks_detect",
			Description: "Detect peak boundary proposals in a chromatogram. Returns proposals ranked by score with point-index and retention-time bounds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"top_n": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of proposals to return (default 5)",
						"default":     5,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "peaks_assign_targets",
			Description: "Label the anchor bank against the reference peak of each sample and report positive anchors with their regression targets.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"samples": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": windowProperties(map[string]interface{}{
								"path": pathProperty(),
							}),
							"required": []string{"path"},
						},
						"description": "Chromatograms with optional reference windows; a sample without a window has no peaks",
					},
				},
				"required": []string{"samples"},
			},
		},
		{
			Name:        "peaks_training_loss",
			Description: "Compute the classification, regression and total training loss for one chromatogram and its reference peak.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": windowProperties(map[string]interface{}{
					"path": pathProperty(),
				}),
				"required": []string{"path"},
			},
		},

		// Evaluation
		{
			Name:        "peaks_evaluate",
			Description: "Tally true/false positives and negatives of predicted peaks against reference peaks and report precision, recall, F1 and ROC AUC.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Evaluation CSV: chrom_id,source,ref_start,ref_end,pred_start,pred_end,ref_score,pred_score",
					},
					"records": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"id":               map[string]interface{}{"type": "string"},
								"source":           map[string]interface{}{"type": "string"},
								"reference":        map[string]interface{}{"type": "object", "description": "{start, end} point indices"},
								"reference_score":  map[string]interface{}{"type": "number"},
								"prediction":       map[string]interface{}{"type": "object", "description": "{start, end} point indices"},
								"prediction_score": map[string]interface{}{"type": "number"},
							},
							"required": []string{"id"},
						},
						"description": "Inline records, used alone or together with path",
					},
					"reference_threshold": map[string]interface{}{"type": "number", "description": "Reference score below which the reference peak is discarded (default 2.5)"},
					"model_threshold":     map[string]interface{}{"type": "number", "description": "Prediction score below which the prediction is discarded (default 0.5)"},
					"min_points":          map[string]interface{}{"type": "integer", "description": "Minimum points a prediction must span (default 1)"},
					"exclude": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Peptide sequences to skip",
					},
					"list_outcomes": map[string]interface{}{"type": "boolean", "description": "Include the outcome of every record"},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
