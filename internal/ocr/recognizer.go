package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
)

// Backend names accepted by New.
const (
	BackendTesseract = "tesseract"
	BackendCommand   = "command"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// ErrUnknownRecognizer is returned by New for an unsupported backend name.
var ErrUnknownRecognizer = errors.New("unknown recognizer")

// Recognizer converts an image of an equation (or a whole page) to text.
//
// Implementations must accept images of any size and any bounds origin, and
// must be safe to call from multiple goroutines. An empty string with a nil
// error means nothing was recognized.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// RecognizerFunc adapts an ordinary function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

// Recognize calls f(ctx, img).
func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// Info describes a recognizer backend for diagnostics.
type Info struct {
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Describer is implemented by recognizers that can report their status.
type Describer interface {
	Info(ctx context.Context) Info
}

// Options selects and configures a recognizer backend.
type Options struct {
	// Backend is one of the Backend* constants.
	Backend string `json:"backend"`

	// Tesseract settings.
	Language    string `json:"language"`
	PageSegMode int    `json:"psm"`

	// External command settings. "{image}" in CommandArgs is replaced by
	// the path of the PNG to recognize.
	Command     string   `json:"command"`
	CommandArgs []string `json:"command_args"`

	// OpenAI-compatible vision model settings.
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`
	OpenAIAPIKey  string `json:"-"`

	// Anthropic Messages API settings.
	AnthropicBaseURL string `json:"anthropic_base_url"`
	AnthropicModel   string `json:"anthropic_model"`
	AnthropicAPIKey  string `json:"-"`

	// RequestsPerSecond paces the vision backends. Prompt overrides
	// DefaultPrompt for them.
	RequestsPerSecond float64 `json:"requests_per_second"`
	Prompt            string  `json:"prompt,omitempty"`
}

// DefaultOptions returns settings for the Tesseract backend with English
// language data.
func DefaultOptions() Options {
	return Options{
		Backend:           BackendTesseract,
		Language:          "eng",
		PageSegMode:       6,
		Command:           "pix2tex",
		CommandArgs:       []string{ImagePlaceholder},
		OpenAIModel:       DefaultOpenAIModel,
		AnthropicModel:    DefaultAnthropicModel,
		RequestsPerSecond: 2,
	}
}

var constructors = map[string]func(Options) (Recognizer, error){
	BackendTesseract: func(o Options) (Recognizer, error) { return NewTesseract(o.Language, o.PageSegMode), nil },
	BackendCommand:   func(o Options) (Recognizer, error) { return NewCommand(o.Command, o.CommandArgs) },
	BackendOpenAI:    func(o Options) (Recognizer, error) { return NewOpenAI(o) },
	BackendAnthropic: func(o Options) (Recognizer, error) { return NewAnthropic(o) },
}

// Backends returns the supported backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBackend reports whether name is a supported backend.
func IsBackend(name string) bool {
	_, ok := constructors[name]
	return ok
}

// New builds the recognizer selected by opts.Backend.
func New(opts Options) (Recognizer, error) {
	build, ok := constructors[opts.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownRecognizer, opts.Backend, Backends())
	}
	r, err := build(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s recognizer: %w", opts.Backend, err)
	}
	return r, nil
}

// Describe reports r's status, or a minimal Info if r is not a Describer.
func Describe(ctx context.Context, r Recognizer) Info {
	if d, ok := r.(Describer); ok {
		return d.Info(ctx)
	}
	return Info{Backend: fmt.Sprintf("%T", r), Available: true}
}
