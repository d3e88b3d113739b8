// Package server implements the MCP (Model Context Protocol) server for
// chromatogram peak detection.
//
// This package provides a JSON-RPC 2.0 server that exposes the 1D region
// proposal network through the MCP protocol, so that MCP-compatible clients can
// load chromatograms, detect peak boundaries and inspect training targets.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Chromatogram Information:
//   - chromatogram_load: Load a chromatogram and get its summary
//   - chromatogram_label_window: Convert a retention-time window to an index interval
//   - chromatogram_plot: Render traces, reference window and proposals as PNG
//
// Model Operations:
//   - anchors_describe: Describe the anchor bank and model settings
//   - peaks_detect: Ranked peak proposals (Test-mode model)
//   - peaks_assign_targets: Anchor labels and regression targets for samples
//   - peaks_training_loss: Loss breakdown for one sample (Train-mode model)
//
// Evaluation:
//   - peaks_evaluate: Confusion tally, precision, recall, F1 and AUC
//
// # Models
//
// Two models are built at startup from the same configuration and backbone:
// one in Test mode for detection and one in Train mode for loss computation.
// Chromatograms are resampled to the configured sequence length before they
// reach either model.
//
// # Chromatogram Caching
//
// Loaded chromatograms are cached by path for the lifetime of the process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	bb, _ := backbone.NewPooling(1)
//	srv, err := server.New(bb, rpn.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
