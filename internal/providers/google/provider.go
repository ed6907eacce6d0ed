// Package google adapts the Gemini GenerateContent API to
// ports.LLMProvider. Raw-HTTP thought_signature handling and native
// tool-calling are not carried over: they only matter for multi-turn
// tool conversations, which this system drives through JSON-in-text
// parsing instead.
package google

import (
	"context"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/observability"
)

// Provider satisfies ports.LLMProvider over the Gemini GenerateContent
// API.
type Provider struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*Provider, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model = strings.TrimSpace(model); model == "" {
		model = "gemini-1.5-flash"
	}

	httpOpts := genai.HTTPOptions{}
	if base := strings.TrimSpace(baseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      strings.TrimSpace(apiKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, corerr.Wrap(corerr.UpstreamFailure, "init google client", err)
	}
	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Infer(ctx context.Context, prompt string, maxOutputTokens int, images [][]byte) (string, error) {
	log := observability.LoggerWithTrace(ctx)

	parts := []*genai.Part{{Text: prompt}}
	for _, img := range images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: img, MIMEType: "image/png"}})
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if maxOutputTokens > 0 {
		cfg = &genai.GenerateContentConfig{MaxOutputTokens: int32(maxOutputTokens)}
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", p.model).Dur("duration", dur).Msg("google_infer_error")
		return "", corerr.Wrap(corerr.UpstreamFailure, "google generateContent", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", corerr.New(corerr.UpstreamFailure, "google returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	log.Debug().Str("model", p.model).Dur("duration", dur).Msg("google_infer")
	return sb.String(), nil
}
