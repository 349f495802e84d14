package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/eqregions/internal/detection"
	"github.com/ironsheep/eqregions/internal/imaging"
	"github.com/ironsheep/eqregions/internal/logging"
	"github.com/ironsheep/eqregions/internal/ocr"
	"github.com/ironsheep/eqregions/internal/pipeline"
	"github.com/ironsheep/eqregions/internal/source"
)

// Server handles MCP protocol communication
type Server struct {
	cache      *imaging.ImageCache
	detector   *detection.Detector
	recognizer ocr.Recognizer
	pipeline   *pipeline.Pipeline
	sources    source.Options
	version    string
	log        logrus.FieldLogger
}

// Options wires the server to the detection and recognition stack.
type Options struct {
	Detector   *detection.Detector
	Recognizer ocr.Recognizer
	Pipeline   *pipeline.Pipeline
	Sources    source.Options
	Version    string
	Logger     logrus.FieldLogger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance. A missing detector gets default
// options, and a missing pipeline is built from the detector and recognizer.
func New(opts Options) *Server {
	s := &Server{
		cache:      imaging.NewImageCache(),
		detector:   opts.Detector,
		recognizer: opts.Recognizer,
		pipeline:   opts.Pipeline,
		sources:    opts.Sources,
		version:    opts.Version,
		log:        opts.Logger,
	}
	if s.detector == nil {
		s.detector = detection.NewDetector(detection.DefaultOptions())
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.pipeline == nil && s.recognizer != nil {
		s.pipeline = pipeline.New(s.detector, s.recognizer, pipeline.WithLogger(s.log))
	}
	if s.sources.MaxPages == 0 {
		s.sources = source.DefaultOptions()
	}
	if s.sources.Logger == nil {
		s.sources.Logger = s.log
	}
	if s.version == "" {
		s.version = "dev"
	}
	return s
}

// Run reads newline-delimited requests from in and writes responses to out
// until in is exhausted or ctx is done.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("Failed to parse request")
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.WithError(err).Error("Failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.log.WithField("method", req.Method).Debug("Request received")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "eqregions",
				"version": s.version,
			},
		},
	}
}
