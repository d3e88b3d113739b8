package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/klauspost/cpuid/v2"

	"github.com/ironsheep/chromatogram-peaks-mcp/internal/backbone"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/rpn"
	"github.com/ironsheep/chromatogram-peaks-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("chromatogram-peaks-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("chromatogram-peaks-mcp - MCP server for chromatogram peak boundary detection")
			fmt.Println()
			fmt.Println("Usage: chromatogram-peaks-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PEAKS_MCP_LOG_LEVEL=debug       Enable debug logging")
			fmt.Println("  PEAKS_MCP_CONFIG=<file>         JSON model configuration")
			fmt.Println("  PEAKS_MCP_BACKBONE=pooling|loom Feature extractor (default pooling)")
			fmt.Println("  PEAKS_MCP_STRIDE=<n>            Backbone stride (default 1)")
			fmt.Println("  PEAKS_MCP_LOOM_MODEL=<file>     Trained loom weights (loom backbone only)")
			fmt.Println("  PEAKS_MCP_LOOM_MODEL_ID=<id>    Model id inside the weights file (default peak_backbone)")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if os.Getenv("PEAKS_MCP_LOG_LEVEL") == "debug" {
		rpn.Debug = true
		log.Printf("Chromatogram Peaks MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("CPU: %s, %d logical cores", cpuid.CPU.BrandName, cpuid.CPU.LogicalCores)
	}

	cfg := rpn.DefaultConfig()
	if path := os.Getenv("PEAKS_MCP_CONFIG"); path != "" {
		loaded, err := rpn.LoadConfig(path)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		cfg = loaded
	}

	bb, err := newBackbone(cfg)
	if err != nil {
		log.Fatalf("Backbone error: %v", err)
	}

	srv, err := server.New(bb, cfg)
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// newBackbone builds the feature extractor selected by PEAKS_MCP_BACKBONE.
func newBackbone(cfg rpn.Config) (backbone.Backbone, error) {
	stride := 1
	if s := os.Getenv("PEAKS_MCP_STRIDE"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid PEAKS_MCP_STRIDE %q: %w", s, err)
		}
		stride = n
	}

	switch kind := os.Getenv("PEAKS_MCP_BACKBONE"); kind {
	case "", "pooling":
		return backbone.NewPooling(stride)
	case "loom":
		lc := backbone.DefaultLoomConfig()
		lc.InputLength = cfg.SequenceLength
		lc.Stride = stride
		if path := os.Getenv("PEAKS_MCP_LOOM_MODEL"); path != "" {
			id := os.Getenv("PEAKS_MCP_LOOM_MODEL_ID")
			if id == "" {
				id = "peak_backbone"
			}
			return backbone.LoadLoom(path, id, lc)
		}
		return backbone.NewLoom(lc)
	default:
		return nil, fmt.Errorf("unknown backbone %q (want pooling or loom)", kind)
	}
}
