// Package config holds every tunable setting of an equation detection run.
//
// Values are resolved in increasing order of precedence: built-in defaults,
// a YAML or JSON file, EQREGIONS_* environment variables (optionally loaded
// from a .env file), and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/eqregions/internal/detection"
	"github.com/ironsheep/eqregions/internal/imaging"
	"github.com/ironsheep/eqregions/internal/ocr"
	"github.com/ironsheep/eqregions/internal/source"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "EQREGIONS"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete run configuration. The yaml tags double as the
// environment variable suffixes and, with '-' for '_', the flag names.
type Config struct {
	// Page source
	MaxPages    int    `yaml:"max_pages" json:"max_pages"`
	DPI         int    `yaml:"dpi" json:"dpi"`
	PopplerPath string `yaml:"poppler_path" json:"poppler_path"`

	// Region detection
	MinAreaRatio      float64 `yaml:"min_area_ratio" json:"min_area_ratio"`
	MaxRegions        int     `yaml:"max_regions" json:"max_regions"`
	PadPx             int     `yaml:"pad_px" json:"pad_px"`
	IoUThreshold      float64 `yaml:"iou_threshold" json:"iou_threshold"`
	FullPageRatio     float64 `yaml:"full_page_ratio" json:"full_page_ratio"`
	BlurKernel        int     `yaml:"blur_kernel" json:"blur_kernel"`
	BlockSize         int     `yaml:"block_size" json:"block_size"`
	ThresholdOffset   float64 `yaml:"threshold_offset" json:"threshold_offset"`
	CloseKernelWidth  int     `yaml:"close_kernel_width" json:"close_kernel_width"`
	CloseKernelHeight int     `yaml:"close_kernel_height" json:"close_kernel_height"`
	CloseIterations   int     `yaml:"close_iterations" json:"close_iterations"`

	// Recognition
	CropScale         float64  `yaml:"crop_scale" json:"crop_scale"`
	Workers           int      `yaml:"workers" json:"workers"`
	Recognizer        string   `yaml:"recognizer" json:"recognizer"`
	Language          string   `yaml:"language" json:"language"`
	PSM               int      `yaml:"psm" json:"psm"`
	Command           string   `yaml:"command" json:"command"`
	CommandArgs       []string `yaml:"command_args" json:"command_args"`
	OpenAIBaseURL     string   `yaml:"openai_base_url" json:"openai_base_url"`
	OpenAIModel       string   `yaml:"openai_model" json:"openai_model"`
	OpenAIAPIKey      string   `yaml:"openai_api_key" json:"-"`
	AnthropicBaseURL  string   `yaml:"anthropic_base_url" json:"anthropic_base_url"`
	AnthropicModel    string   `yaml:"anthropic_model" json:"anthropic_model"`
	AnthropicAPIKey   string   `yaml:"anthropic_api_key" json:"-"`
	RequestsPerSecond float64  `yaml:"requests_per_second" json:"requests_per_second"`

	// Diagnostics
	DebugDir string `yaml:"debug_dir" json:"debug_dir"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	mask := imaging.DefaultMaskOptions()
	extract := detection.DefaultExtractOptions()
	src := source.DefaultOptions()
	rec := ocr.DefaultOptions()

	return Config{
		MaxPages: src.MaxPages,
		DPI:      src.DPI,

		MinAreaRatio:      extract.MinAreaRatio,
		MaxRegions:        detection.DefaultMaxRegions,
		PadPx:             extract.PadPx,
		IoUThreshold:      detection.DefaultIoUThreshold,
		FullPageRatio:     extract.FullPageRatio,
		BlurKernel:        mask.BlurKernel,
		BlockSize:         mask.BlockSize,
		ThresholdOffset:   mask.Offset,
		CloseKernelWidth:  mask.CloseWidth,
		CloseKernelHeight: mask.CloseHeight,
		CloseIterations:   mask.CloseIterations,

		CropScale:         1.0,
		Workers:           1,
		Recognizer:        rec.Backend,
		Language:          rec.Language,
		PSM:               rec.PageSegMode,
		Command:           rec.Command,
		CommandArgs:       rec.CommandArgs,
		OpenAIModel:       rec.OpenAIModel,
		AnthropicModel:    rec.AnthropicModel,
		RequestsPerSecond: rec.RequestsPerSecond,

		LogLevel: "info",
	}
}

// DetectorOptions returns the detection settings.
func (c *Config) DetectorOptions() detection.Options {
	return detection.Options{
		Mask: imaging.MaskOptions{
			BlurKernel:      c.BlurKernel,
			BlockSize:       c.BlockSize,
			Offset:          c.ThresholdOffset,
			CloseWidth:      c.CloseKernelWidth,
			CloseHeight:     c.CloseKernelHeight,
			CloseIterations: c.CloseIterations,
		},
		Extract: detection.ExtractOptions{
			MinAreaRatio:  c.MinAreaRatio,
			FullPageRatio: c.FullPageRatio,
			PadPx:         c.PadPx,
		},
		IoUThreshold: c.IoUThreshold,
		MaxRegions:   c.MaxRegions,
	}
}

// RecognizerOptions returns the recognizer backend settings.
func (c *Config) RecognizerOptions() ocr.Options {
	return ocr.Options{
		Backend:           c.Recognizer,
		Language:          c.Language,
		PageSegMode:       c.PSM,
		Command:           c.Command,
		CommandArgs:       append([]string(nil), c.CommandArgs...),
		OpenAIBaseURL:     c.OpenAIBaseURL,
		OpenAIModel:       c.OpenAIModel,
		OpenAIAPIKey:      c.OpenAIAPIKey,
		AnthropicBaseURL:  c.AnthropicBaseURL,
		AnthropicModel:    c.AnthropicModel,
		AnthropicAPIKey:   c.AnthropicAPIKey,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// SourceOptions returns the page source settings.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		MaxPages:    c.MaxPages,
		DPI:         c.DPI,
		PopplerPath: c.PopplerPath,
	}
}

// Validate checks every setting and reports all problems at once. The
// returned error wraps ErrInvalid.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.MaxPages > 0, "max_pages must be positive, got %d", c.MaxPages)
	check(c.DPI > 0, "dpi must be positive, got %d", c.DPI)

	check(c.MinAreaRatio >= 0 && c.MinAreaRatio <= 1, "min_area_ratio must be in [0,1], got %v", c.MinAreaRatio)
	check(c.MaxRegions >= 0, "max_regions must not be negative, got %d", c.MaxRegions)
	check(c.PadPx >= 0, "pad_px must not be negative, got %d", c.PadPx)
	check(c.IoUThreshold >= 0 && c.IoUThreshold <= 1, "iou_threshold must be in [0,1], got %v", c.IoUThreshold)
	check(c.FullPageRatio > 0 && c.FullPageRatio <= 1, "full_page_ratio must be in (0,1], got %v", c.FullPageRatio)
	check(c.BlurKernel <= 1 || c.BlurKernel%2 == 1, "blur_kernel must be odd, got %d", c.BlurKernel)
	check(c.BlurKernel >= 0, "blur_kernel must not be negative, got %d", c.BlurKernel)
	check(c.BlockSize >= 3 && c.BlockSize%2 == 1, "block_size must be an odd number >= 3, got %d", c.BlockSize)
	check(c.CloseKernelWidth > 0 && c.CloseKernelHeight > 0,
		"close kernel must be positive, got %dx%d", c.CloseKernelWidth, c.CloseKernelHeight)
	check(c.CloseIterations >= 0, "close_iterations must not be negative, got %d", c.CloseIterations)

	check(c.CropScale > 0, "crop_scale must be positive, got %v", c.CropScale)
	check(c.Workers > 0, "workers must be positive, got %d", c.Workers)
	check(ocr.IsBackend(c.Recognizer), "recognizer must be one of %v, got %q", ocr.Backends(), c.Recognizer)
	check(c.PSM >= 0 && c.PSM <= 13, "psm must be in [0,13], got %d", c.PSM)
	check(c.RequestsPerSecond >= 0, "requests_per_second must not be negative, got %v", c.RequestsPerSecond)

	_, err := logrus.ParseLevel(c.LogLevel)
	check(err == nil, "log_level %q is not a valid level", c.LogLevel)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
