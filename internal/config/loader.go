package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	yaml "gopkg.in/yaml.v3"
)

// Load returns the defaults overlaid with the file at path (if non-empty)
// and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := LoadFromFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := LoadFromEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// extension). Keys absent from the file keep their current values.
func LoadFromFile(configPath string, cfg *Config) error {
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML config file %s: %w", configPath, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config file %s: %w", configPath, err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}

	return nil
}

// LoadFromEnv overrides fields from EQREGIONS_<YAML_KEY> variables. String
// slices are comma separated. OPENAI_API_KEY and ANTHROPIC_API_KEY are used
// when no key has been configured.
func LoadFromEnv(cfg *Config) error {
	value := reflect.ValueOf(cfg).Elem()
	structType := value.Type()

	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)
		key := yamlKey(structType.Field(i))
		if key == "" {
			continue
		}

		envName := EnvPrefix + "_" + strings.ToUpper(key)
		envValue, ok := os.LookupEnv(envName)
		if !ok || envValue == "" {
			continue
		}
		if err := setFieldFromString(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s from env %s: %w", structType.Field(i).Name, envName, err)
		}
	}

	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return nil
}

// RegisterFlags defines one flag per setting on fs, bound to the fields of
// target. Flag names are the yaml keys with '-' in place of '_'.
func RegisterFlags(fs *pflag.FlagSet, target *Config) {
	fs.IntVar(&target.MaxPages, "max-pages", target.MaxPages, "maximum number of pages to process")
	fs.IntVar(&target.DPI, "dpi", target.DPI, "PDF rendering resolution")
	fs.StringVar(&target.PopplerPath, "poppler-path", target.PopplerPath, "directory containing pdftoppm")

	fs.Float64Var(&target.MinAreaRatio, "min-area-ratio", target.MinAreaRatio, "minimum blob area as a fraction of the page")
	fs.IntVar(&target.MaxRegions, "max-regions", target.MaxRegions, "maximum regions per page")
	fs.IntVar(&target.PadPx, "pad-px", target.PadPx, "padding added around each region")
	fs.Float64Var(&target.IoUThreshold, "iou-threshold", target.IoUThreshold, "overlap at which a region is suppressed")
	fs.Float64Var(&target.FullPageRatio, "full-page-ratio", target.FullPageRatio, "size at which a blob counts as the whole page")
	fs.IntVar(&target.BlurKernel, "blur-kernel", target.BlurKernel, "blur kernel size (odd, <=1 disables)")
	fs.IntVar(&target.BlockSize, "block-size", target.BlockSize, "adaptive threshold block size (odd)")
	fs.Float64Var(&target.ThresholdOffset, "threshold-offset", target.ThresholdOffset, "adaptive threshold offset")
	fs.IntVar(&target.CloseKernelWidth, "close-kernel-width", target.CloseKernelWidth, "closing kernel width")
	fs.IntVar(&target.CloseKernelHeight, "close-kernel-height", target.CloseKernelHeight, "closing kernel height")
	fs.IntVar(&target.CloseIterations, "close-iterations", target.CloseIterations, "closing iterations")

	fs.Float64Var(&target.CropScale, "crop-scale", target.CropScale, "resize factor applied to crops before recognition")
	fs.IntVar(&target.Workers, "workers", target.Workers, "regions recognized concurrently per page")
	fs.StringVar(&target.Recognizer, "recognizer", target.Recognizer, "recognizer backend: anthropic, command, openai or tesseract")
	fs.StringVar(&target.Language, "language", target.Language, "tesseract language")
	fs.IntVar(&target.PSM, "psm", target.PSM, "tesseract page segmentation mode")
	fs.StringVar(&target.Command, "command", target.Command, "external recognizer command")
	fs.StringSliceVar(&target.CommandArgs, "command-args", target.CommandArgs, "external recognizer arguments ({image} is the crop path)")
	fs.StringVar(&target.OpenAIBaseURL, "openai-base-url", target.OpenAIBaseURL, "OpenAI-compatible API base URL")
	fs.StringVar(&target.OpenAIModel, "openai-model", target.OpenAIModel, "vision model name")
	fs.StringVar(&target.OpenAIAPIKey, "openai-api-key", target.OpenAIAPIKey, "API key (defaults to OPENAI_API_KEY)")
	fs.StringVar(&target.AnthropicBaseURL, "anthropic-base-url", target.AnthropicBaseURL, "Anthropic API base URL")
	fs.StringVar(&target.AnthropicModel, "anthropic-model", target.AnthropicModel, "Claude model name")
	fs.StringVar(&target.AnthropicAPIKey, "anthropic-api-key", target.AnthropicAPIKey, "API key (defaults to ANTHROPIC_API_KEY)")
	fs.Float64Var(&target.RequestsPerSecond, "requests-per-second", target.RequestsPerSecond, "recognizer request rate limit (0 disables)")

	fs.StringVar(&target.DebugDir, "debug-dir", target.DebugDir, "directory for mask and overlay images")
	fs.StringVar(&target.LogLevel, "log-level", target.LogLevel, "log level: debug, info, warn, error")
}

// ApplyFlags copies every flag that was set on the command line from flags
// into cfg.
func ApplyFlags(fs *pflag.FlagSet, flags *Config, cfg *Config) {
	src := reflect.ValueOf(flags).Elem()
	dst := reflect.ValueOf(cfg).Elem()
	structType := dst.Type()

	for i := 0; i < dst.NumField(); i++ {
		key := yamlKey(structType.Field(i))
		if key == "" {
			continue
		}
		if fs.Changed(strings.ReplaceAll(key, "_", "-")) {
			dst.Field(i).Set(src.Field(i))
		}
	}
}

func yamlKey(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

// setFieldFromString sets a field value from string based on field type
func setFieldFromString(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int:
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid int value: %s", value)
		}
		field.SetInt(int64(intVal))

	case reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
		field.SetFloat(floatVal)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		values := strings.Split(value, ",")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(values))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}

	return nil
}
