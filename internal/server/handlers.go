package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/eqregions/internal/detection"
	"github.com/ironsheep/eqregions/internal/imaging"
	"github.com/ironsheep/eqregions/internal/ocr"
	"github.com/ironsheep/eqregions/internal/pipeline"
	"github.com/ironsheep/eqregions/internal/source"
)

// errNoRecognizer is returned by equations_recognize when the server was
// started without a recognizer.
var errNoRecognizer = errors.New("no recognizer configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "equations_detect").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("Tool execution failed")
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "equations_detect":
		return s.handleEquationsDetect(ctx, args)
	case "equations_recognize":
		return s.handleEquationsRecognize(ctx, args)
	case "equations_mask":
		return s.handleEquationsMask(args)
	case "equations_cache_clear":
		return s.handleCacheClear(args)
	case "equations_info":
		return s.handleEquationsInfo(ctx)
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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type documentArgs struct {
	Path     string `json:"path"`
	MaxPages int    `json:"max_pages"`
}

func parseDocumentArgs(args json.RawMessage) (documentArgs, error) {
	var a documentArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return a, err
		}
	}
	if a.Path == "" {
		return a, errors.New("path is required")
	}
	if a.MaxPages < 0 {
		return a, fmt.Errorf("max_pages must be positive, got %d", a.MaxPages)
	}
	return a, nil
}

// loadPages reads the pages at path. Single image files go through the
// image cache; PDFs and directories are read fresh on every call.
func (s *Server) loadPages(ctx context.Context, a documentArgs) ([]source.Page, error) {
	if info, err := os.Stat(a.Path); err == nil && !info.IsDir() && imaging.IsSupported(a.Path) {
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		return []source.Page{{Number: 1, Image: img}}, nil
	}

	opts := s.sources
	if a.MaxPages > 0 {
		opts.MaxPages = a.MaxPages
	}
	src, err := source.Open(a.Path, opts)
	if err != nil {
		return nil, err
	}
	return src.Pages(ctx)
}

type detectResult struct {
	Pages []pipeline.PageReport `json:"pages"`
}

func (s *Server) handleEquationsDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	a, err := parseDocumentArgs(args)
	if err != nil {
		return nil, err
	}
	pages, err := s.loadPages(ctx, a)
	if err != nil {
		return nil, err
	}

	p := s.pipeline
	if p == nil {
		p = pipeline.New(s.detector, nil, pipeline.WithLogger(s.log))
	}
	reports, err := p.Detect(ctx, pages)
	if err != nil {
		return nil, err
	}
	return &detectResult{Pages: reports}, nil
}

type recognizeResult struct {
	Equations []string              `json:"equations"`
	Pages     []pipeline.PageReport `json:"pages"`
}

func (s *Server) handleEquationsRecognize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.pipeline == nil || s.recognizer == nil {
		return nil, errNoRecognizer
	}
	a, err := parseDocumentArgs(args)
	if err != nil {
		return nil, err
	}
	pages, err := s.loadPages(ctx, a)
	if err != nil {
		return nil, err
	}

	result, err := s.pipeline.Run(ctx, pages)
	if err != nil {
		return nil, err
	}
	return &recognizeResult{Equations: result.Equations, Pages: result.Pages}, nil
}

type maskArgs struct {
	Path string `json:"path"`
}

type maskResult struct {
	*imaging.EncodedImage
	ForegroundRatio float64 `json:"foreground_ratio"`
}

func (s *Server) handleEquationsMask(args json.RawMessage) (interface{}, error) {
	var a maskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	mask := imaging.BuildMask(img, s.detector.Options().Mask)
	encoded, err := imaging.EncodeBase64(mask)
	if err != nil {
		return nil, err
	}
	return &maskResult{EncodedImage: encoded, ForegroundRatio: imaging.ForegroundRatio(mask)}, nil
}

type cacheClearArgs struct {
	Path string `json:"path"`
}

type cacheClearResult struct {
	Evicted      int `json:"evicted"`
	CachedImages int `json:"cached_images"`
}

func (s *Server) handleCacheClear(args json.RawMessage) (interface{}, error) {
	var a cacheClearArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}

	result := &cacheClearResult{}
	if a.Path != "" {
		if s.cache.Evict(a.Path) {
			result.Evicted = 1
		}
	} else {
		result.Evicted = s.cache.Clear()
	}
	result.CachedImages = s.cache.Len()

	s.log.WithField("evicted", result.Evicted).Debug("Image cache cleared")
	return result, nil
}

type infoResult struct {
	Version      string            `json:"version"`
	Recognizer   *ocr.Info         `json:"recognizer,omitempty"`
	Backends     []string          `json:"backends"`
	Detector     detection.Options `json:"detector"`
	CachedImages int               `json:"cached_images"`
}

func (s *Server) handleEquationsInfo(ctx context.Context) (interface{}, error) {
	result := &infoResult{
		Version:      s.version,
		Backends:     ocr.Backends(),
		Detector:     s.detector.Options(),
		CachedImages: s.cache.Len(),
	}
	if s.recognizer != nil {
		info := ocr.Describe(ctx, s.recognizer)
		result.Recognizer = &info
	}
	return result, nil
}
