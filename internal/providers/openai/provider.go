// Package openai adapts the OpenAI Chat Completions API to
// ports.LLMProvider. Native tool-calling, SSE streaming, and
// self-hosted-backend compatibility quirks are left out: tool dispatch in
// this system happens by parsing the model's plain-text JSON reply
// (internal/llm.ExtractJSONObject), not through provider-native function
// calling.
package openai

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/observability"
)

// Provider satisfies ports.LLMProvider over the OpenAI Chat Completions
// API.
type Provider struct {
	sdk   sdk.Client
	model string
}

// New constructs a Provider. baseURL may be empty to use OpenAI's
// default endpoint, or point at an OpenAI-compatible self-hosted
// backend.
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
		model = "gpt-4o-mini"
	}
	return &Provider{sdk: sdk.NewClient(opts...), model: model}
}

// Infer issues a single non-streaming completion over one user message
// built from prompt, optionally attaching images as base64 data URLs.
func (p *Provider) Infer(ctx context.Context, prompt string, maxOutputTokens int, images [][]byte) (string, error) {
	log := observability.LoggerWithTrace(ctx)

	content := buildContent(prompt, images)
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(p.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(content),
		},
	}
	if maxOutputTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(maxOutputTokens))
	}

	start := time.Now()
	resp, err := p.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", p.model).Dur("duration", dur).Msg("openai_infer_error")
		return "", corerr.Wrap(corerr.UpstreamFailure, "openai completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", corerr.New(corerr.UpstreamFailure, "openai returned no choices")
	}

	log.Debug().Str("model", p.model).
		Int("prompt_tokens", int(resp.Usage.PromptTokens)).
		Int("completion_tokens", int(resp.Usage.CompletionTokens)).
		Dur("duration", dur).
		Msg("openai_infer")

	return resp.Choices[0].Message.Content, nil
}

func buildContent(prompt string, images [][]byte) any {
	if len(images) == 0 {
		return prompt
	}
	parts := []sdk.ChatCompletionContentPartUnionParam{
		sdk.TextContentPart(prompt),
	}
	for _, img := range images {
		parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
		}))
	}
	return parts
}
