package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/eqregions/internal/ocr"
)

// createTestImageFile writes a white page with one dark horizontal stroke and
// returns its path.
func createTestImageFile(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := height / 3; y < height/3+8; y++ {
		for x := width / 5; x < width*3/5; x++ {
			img.Set(x, y, color.Black)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))

	return path
}

func constRecognizer(text string) ocr.Recognizer {
	return ocr.RecognizerFunc(func(context.Context, image.Image) (string, error) {
		return text, nil
	})
}

// callTool sends a tools/call request and decodes the text content of a
// successful response into out.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPResponse {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	require.NoError(t, err)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	require.NotNil(t, resp)

	if resp.Error != nil || out == nil {
		return resp
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	require.NoError(t, json.Unmarshal([]byte(content[0]["text"].(string)), out))
	return resp
}

func TestEquationsDetect_Image(t *testing.T) {
	s := New(Options{})
	path := createTestImageFile(t, t.TempDir(), "page.png", 300, 200)

	var out struct {
		Pages []struct {
			Page     int `json:"page"`
			Width    int `json:"width"`
			Height   int `json:"height"`
			Fallback bool
			Regions  []struct {
				X1, Y1, X2, Y2 int
			} `json:"regions"`
		} `json:"pages"`
	}
	resp := callTool(t, s, "equations_detect", map[string]interface{}{"path": path}, &out)
	require.Nil(t, resp.Error)

	require.Len(t, out.Pages, 1)
	page := out.Pages[0]
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 300, page.Width)
	assert.Equal(t, 200, page.Height)
	require.NotEmpty(t, page.Regions)
	assert.False(t, page.Fallback)
	assert.Equal(t, 1, s.cache.Len(), "single images go through the cache")
}

func TestEquationsDetect_Directory(t *testing.T) {
	s := New(Options{})
	dir := t.TempDir()
	createTestImageFile(t, dir, "b.png", 120, 80)
	createTestImageFile(t, dir, "a.png", 200, 100)
	createTestImageFile(t, dir, "c.png", 90, 60)

	var out struct {
		Pages []struct {
			Page  int `json:"page"`
			Width int `json:"width"`
		} `json:"pages"`
	}
	callTool(t, s, "equations_detect", map[string]interface{}{"path": dir, "max_pages": 2}, &out)

	require.Len(t, out.Pages, 2)
	assert.Equal(t, 200, out.Pages[0].Width, "files are read in name order")
	assert.Equal(t, 120, out.Pages[1].Width)
	assert.Equal(t, 2, out.Pages[1].Page)
}

func TestEquationsRecognize(t *testing.T) {
	s := New(Options{Recognizer: constRecognizer("x=1")})
	path := createTestImageFile(t, t.TempDir(), "page.png", 300, 200)

	var out struct {
		Equations []string `json:"equations"`
		Pages     []struct {
			Equations []string `json:"equations"`
		} `json:"pages"`
	}
	resp := callTool(t, s, "equations_recognize", map[string]interface{}{"path": path}, &out)
	require.Nil(t, resp.Error)

	require.NotEmpty(t, out.Equations)
	for _, eq := range out.Equations {
		assert.Equal(t, "x=1", eq)
	}
	require.Len(t, out.Pages, 1)
	assert.Equal(t, out.Equations, out.Pages[0].Equations)
}

func TestEquationsRecognize_NoRecognizer(t *testing.T) {
	s := New(Options{})
	path := createTestImageFile(t, t.TempDir(), "page.png", 100, 100)

	resp := callTool(t, s, "equations_recognize", map[string]interface{}{"path": path}, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32000, resp.Error.Code)
	assert.Equal(t, errNoRecognizer.Error(), resp.Error.Data)
}

func TestEquationsRecognize_FailingRecognizer(t *testing.T) {
	failing := ocr.RecognizerFunc(func(context.Context, image.Image) (string, error) {
		return "", errors.New("engine offline")
	})
	s := New(Options{Recognizer: failing})
	path := createTestImageFile(t, t.TempDir(), "page.png", 300, 200)

	var out struct {
		Equations []string `json:"equations"`
		Pages     []struct {
			Error string `json:"error"`
		} `json:"pages"`
	}
	resp := callTool(t, s, "equations_recognize", map[string]interface{}{"path": path}, &out)
	require.Nil(t, resp.Error, "recognition failures are reported per page")

	assert.Empty(t, out.Equations)
	require.Len(t, out.Pages, 1)
	assert.Contains(t, out.Pages[0].Error, "engine offline")
}

func TestEquationsMask(t *testing.T) {
	s := New(Options{})
	path := createTestImageFile(t, t.TempDir(), "page.png", 160, 90)

	var out struct {
		Width           int     `json:"width"`
		Height          int     `json:"height"`
		ImageBase64     string  `json:"image_base64"`
		MimeType        string  `json:"mime_type"`
		ForegroundRatio float64 `json:"foreground_ratio"`
	}
	resp := callTool(t, s, "equations_mask", map[string]interface{}{"path": path}, &out)
	require.Nil(t, resp.Error)

	assert.Equal(t, 160, out.Width)
	assert.Equal(t, 90, out.Height)
	assert.Equal(t, "image/png", out.MimeType)
	assert.Greater(t, out.ForegroundRatio, 0.0)
	assert.Less(t, out.ForegroundRatio, 0.5)

	data, err := base64.StdEncoding.DecodeString(out.ImageBase64)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 160, cfg.Width)
}

func TestEquationsInfo(t *testing.T) {
	s := New(Options{Recognizer: constRecognizer(""), Version: "0.3.0"})

	var out struct {
		Version    string   `json:"version"`
		Backends   []string `json:"backends"`
		Recognizer struct {
			Available bool `json:"available"`
		} `json:"recognizer"`
		Detector struct {
			IoUThreshold float64 `json:"iou_threshold"`
			MaxRegions   int     `json:"max_regions"`
		} `json:"detector"`
	}
	resp := callTool(t, s, "equations_info", map[string]interface{}{}, &out)
	require.Nil(t, resp.Error)

	assert.Equal(t, "0.3.0", out.Version)
	assert.Equal(t, ocr.Backends(), out.Backends)
	assert.True(t, out.Recognizer.Available)
	assert.Equal(t, 0.4, out.Detector.IoUThreshold)
	assert.Equal(t, 20, out.Detector.MaxRegions)
}

func TestEquationsMask_FollowsFileChanges(t *testing.T) {
	s := New(Options{})
	dir := t.TempDir()
	path := createTestImageFile(t, dir, "page.png", 160, 90)

	var out struct {
		Width int `json:"width"`
	}
	callTool(t, s, "equations_mask", map[string]interface{}{"path": path}, &out)
	assert.Equal(t, 160, out.Width)

	// Overwrite the page with a wider one; the next call must see it.
	wider := createTestImageFile(t, t.TempDir(), "wide.png", 240, 90)
	data, err := os.ReadFile(wider)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	callTool(t, s, "equations_mask", map[string]interface{}{"path": path}, &out)
	assert.Equal(t, 240, out.Width)
	assert.Equal(t, 1, s.cache.Len())
}

func TestEquationsCacheClear(t *testing.T) {
	s := New(Options{})
	dir := t.TempDir()
	first := createTestImageFile(t, dir, "a.png", 60, 40)
	second := createTestImageFile(t, dir, "b.png", 60, 40)
	for _, p := range []string{first, second} {
		resp := callTool(t, s, "equations_mask", map[string]interface{}{"path": p}, &struct{}{})
		require.Nil(t, resp.Error)
	}

	var out struct {
		Evicted      int `json:"evicted"`
		CachedImages int `json:"cached_images"`
	}
	callTool(t, s, "equations_cache_clear", map[string]interface{}{"path": first}, &out)
	assert.Equal(t, 1, out.Evicted)
	assert.Equal(t, 1, out.CachedImages)

	callTool(t, s, "equations_cache_clear", nil, &out)
	assert.Equal(t, 1, out.Evicted)
	assert.Equal(t, 0, out.CachedImages)

	var info struct {
		CachedImages int `json:"cached_images"`
	}
	callTool(t, s, "equations_info", map[string]interface{}{}, &info)
	assert.Equal(t, 0, info.CachedImages)
}

func TestToolsCall_Errors(t *testing.T) {
	s := New(Options{Recognizer: constRecognizer("x")})
	missing := filepath.Join(t.TempDir(), "missing.png")

	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"unknown tool", "image_crop", map[string]interface{}{}},
		{"detect without path", "equations_detect", map[string]interface{}{}},
		{"detect missing file", "equations_detect", map[string]interface{}{"path": missing}},
		{"detect negative max pages", "equations_detect", map[string]interface{}{"path": t.TempDir(), "max_pages": -1}},
		{"recognize wrong arg type", "equations_recognize", map[string]interface{}{"path": 42}},
		{"mask missing file", "equations_mask", map[string]interface{}{"path": missing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, -32000, resp.Error.Code)
		})
	}
}

func TestToolsCall_InvalidParams(t *testing.T) {
	s := New(Options{})
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      3,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}
