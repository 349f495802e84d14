package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	eqimaging "github.com/ironsheep/eqregions/internal/imaging"
)

// DefaultOpenAIModel is the vision model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// DefaultPrompt asks the model for bare LaTeX.
const DefaultPrompt = "Transcribe the mathematical content of this image as LaTeX. " +
	"Reply with the LaTeX only, without delimiters, code fences or commentary. " +
	"If the image contains no mathematics, reply with an empty message."

// ErrMissingAPIKey is returned when neither an API key nor a custom base URL
// is configured for a vision backend.
var ErrMissingAPIKey = errors.New("api key is required")

// OpenAI recognizes images with an OpenAI-compatible chat completion endpoint
// that accepts image inputs. The client is shared between calls and requests
// are paced by a token-bucket limiter.
type OpenAI struct {
	client  openai.Client
	model   string
	prompt  string
	limiter *rate.Limiter
}

// NewOpenAI creates a vision recognizer from opts. A RequestsPerSecond of 0
// or less disables rate limiting.
func NewOpenAI(opts Options, extra ...option.RequestOption) (*OpenAI, error) {
	if opts.OpenAIAPIKey == "" && opts.OpenAIBaseURL == "" {
		return nil, ErrMissingAPIKey
	}

	reqOpts := make([]option.RequestOption, 0, 2+len(extra))
	if opts.OpenAIBaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.OpenAIBaseURL))
	}
	if opts.OpenAIAPIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.OpenAIAPIKey))
	}
	reqOpts = append(reqOpts, extra...)

	model := opts.OpenAIModel
	if model == "" {
		model = DefaultOpenAIModel
	}
	prompt := opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &OpenAI{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		prompt:  prompt,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Recognize sends img as a base64 PNG data URL and returns the model's reply
// with any code fences or math delimiters removed.
func (o *OpenAI) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}

	data, err := eqimaging.EncodePNG(img)
	if err != nil {
		return "", err
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.prompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	return cleanLatex(resp.Choices[0].Message.Content), nil
}

// Info reports the configured model.
func (o *OpenAI) Info(context.Context) Info {
	return Info{
		Backend:   BackendOpenAI,
		Available: true,
		Detail:    "model=" + o.model,
	}
}

// cleanLatex strips surrounding whitespace, code fences and $ / \[ \]
// delimiters from a model reply.
func cleanLatex(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "latex")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	for _, pair := range [][2]string{{"$$", "$$"}, {`\[`, `\]`}, {`\(`, `\)`}, {"$", "$"}} {
		if len(s) >= len(pair[0])+len(pair[1]) && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			s = strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
			break
		}
	}

	return s
}
