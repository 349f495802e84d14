// Package server implements an MCP (Model Context Protocol) server that exposes
// equation region detection and recognition as tools.
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
//   - equations_detect: per-page regions for a PDF, image, or image directory
//   - equations_recognize: detected regions recognized as LaTeX, in reading order
//   - equations_mask: the binary ink mask of an image as base64 PNG
//   - equations_cache_clear: drop one or all cached images
//   - equations_info: version, recognizer status and detector settings
//
// Single image files are cached by path and decoded again when the file's
// size or modification time changes. PDFs are rasterized again on every call.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors with code -32000 and the Go
// error string in data. A recognizer failure on one page is not a tool
// failure: it is reported in that page's "error" field and the remaining
// pages are still processed.
package server
