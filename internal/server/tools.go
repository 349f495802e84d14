package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "equations_detect",
			Description: "Find equation-like regions on every page of a PDF, an image file, or a directory of images. Returns per-page boxes in reading order without recognizing them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a PDF, an image file, or a directory of images",
					},
					"max_pages": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of pages to process (default from server config)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "equations_recognize",
			Description: "Detect equation regions and recognize each one as LaTeX. Pages with no regions are recognized as a whole. Returns equations in page then reading order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a PDF, an image file, or a directory of images",
					},
					"max_pages": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of pages to process (default from server config)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "equations_mask",
			Description: "Return the binary ink mask the detector builds for an image, as a base64-encoded PNG. White pixels are foreground. Useful for tuning thresholds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "equations_cache_clear",
			Description: "Drop decoded images from the server's image cache. Changed files are reloaded automatically; use this to free memory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Only drop this image (default: drop all)",
					},
				},
			},
		},
		{
			Name:        "equations_info",
			Description: "Report the server version, the configured recognizer and whether it is available, and the detector settings.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
