package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	eqimaging "github.com/ironsheep/eqregions/internal/imaging"
)

// DefaultAnthropicModel is the Claude model used when none is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// anthropicMaxTokens bounds the reply; one equation never needs more.
const anthropicMaxTokens = 1024

// Anthropic recognizes images with the Anthropic Messages API.
type Anthropic struct {
	messages anthropic.MessageService
	model    string
	prompt   string
	limiter  *rate.Limiter
}

// NewAnthropic creates a Claude vision recognizer from opts. Like NewOpenAI,
// it needs an API key unless a custom base URL is set.
func NewAnthropic(opts Options, extra ...option.RequestOption) (*Anthropic, error) {
	if opts.AnthropicAPIKey == "" && opts.AnthropicBaseURL == "" {
		return nil, ErrMissingAPIKey
	}

	url := opts.AnthropicBaseURL
	if url == "" {
		url = "https://api.anthropic.com/"
	}
	url = strings.TrimRight(url, "/") + "/"

	reqOpts := []option.RequestOption{option.WithBaseURL(url)}
	if opts.AnthropicAPIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.AnthropicAPIKey))
	}
	reqOpts = append(reqOpts, extra...)

	model := opts.AnthropicModel
	if model == "" {
		model = DefaultAnthropicModel
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Anthropic{
		messages: anthropic.NewMessageService(reqOpts...),
		model:    model,
		prompt:   prompt,
		limiter:  rate.NewLimiter(limit, 1),
	}, nil
}

// Recognize sends img as a base64 PNG image block and returns the text
// blocks of the reply, cleaned of math delimiters.
func (a *Anthropic) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	data, err := eqimaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	message, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: a.prompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(data)),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("message request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if text := block.AsText(); text.Text != "" {
			sb.WriteString(text.Text)
		}
	}

	return cleanLatex(sb.String()), nil
}

// Info reports the configured model.
func (a *Anthropic) Info(context.Context) Info {
	return Info{
		Backend:   BackendAnthropic,
		Available: true,
		Detail:    "model=" + a.model,
	}
}
