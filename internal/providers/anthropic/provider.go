// Package anthropic adapts the Anthropic Messages API to
// ports.LLMProvider, leaving out extended thinking, prompt-cache, and
// native tool-calling machinery: none of it is reachable through the
// single-prompt Infer contract this system uses.
package anthropic

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/observability"
)

const defaultMaxTokens int64 = 4096

// Provider satisfies ports.LLMProvider over the Anthropic Messages API.
type Provider struct {
	sdk   sdk.Client
	model string
}

func New(apiKey, model, baseURL string, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	if model = strings.TrimSpace(model); model == "" {
		model = string(sdk.ModelClaude3_7SonnetLatest)
	}
	return &Provider{sdk: sdk.NewClient(opts...), model: model}
}

func (p *Provider) Infer(ctx context.Context, prompt string, maxOutputTokens int, images [][]byte) (string, error) {
	log := observability.LoggerWithTrace(ctx)

	maxTokens := defaultMaxTokens
	if maxOutputTokens > 0 {
		maxTokens = int64(maxOutputTokens)
	}

	blocks := []sdk.ContentBlockParamUnion{sdk.NewTextBlock(prompt)}
	for _, img := range images {
		blocks = append(blocks, sdk.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(img)))
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(blocks...),
		},
	}

	start := time.Now()
	resp, err := p.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", p.model).Dur("duration", dur).Msg("anthropic_infer_error")
		return "", corerr.Wrap(corerr.UpstreamFailure, "anthropic message", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	log.Debug().Str("model", p.model).
		Int("input_tokens", int(resp.Usage.InputTokens)).
		Int("output_tokens", int(resp.Usage.OutputTokens)).
		Dur("duration", dur).
		Msg("anthropic_infer")

	return text.String(), nil
}
