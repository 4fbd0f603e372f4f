package structurer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Request is one structuring call.
type Request struct {
	Model       string
	MaxTokens   int64
	System      string
	Prompt      string
	Temperature float64
}

// Response carries the concatenated text blocks and token usage.
type Response struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Completer sends a single prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

type sdkCompleter struct {
	client sdk.Client
}

// NewCompleter returns a Completer backed by the Anthropic SDK. baseURL may
// be empty. The SDK's own retries are disabled; Structurer retries instead.
func NewCompleter(apiKey, baseURL string) Completer {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &sdkCompleter{client: sdk.NewClient(opts...)}
}

func (c *sdkCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(req.Model),
		MaxTokens:   req.MaxTokens,
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt))},
		Temperature: sdk.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500) {
			return nil, &RetryableError{StatusCode: apiErr.StatusCode, Message: err.Error()}
		}
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, eris.New("anthropic: empty response")
	}
	return &Response{
		Text:         sb.String(),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}
