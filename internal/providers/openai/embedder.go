package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/observability"
)

// Embedder satisfies ports.Embedder over the OpenAI Embeddings API,
// issued through the SDK client rather than a hand-rolled HTTP request.
type Embedder struct {
	sdk       sdk.Client
	model     string
	dim       int
	chunkSize int
}

func NewEmbedder(apiKey, model, baseURL string, dim, chunkSize int, httpClient *http.Client) *Embedder {
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
		model = "text-embedding-3-small"
	}
	if dim <= 0 {
		dim = 1536
	}
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	return &Embedder{sdk: sdk.NewClient(opts...), model: model, dim: dim, chunkSize: chunkSize}
}

func (e *Embedder) Dim() int       { return e.dim }
func (e *Embedder) ChunkSize() int { return e.chunkSize }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	log := observability.LoggerWithTrace(ctx)

	start := time.Now()
	resp, err := e.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(e.model),
		Input: sdk.EmbeddingNewParamsInputUnion{OfString: sdk.String(text)},
	})
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", e.model).Dur("duration", dur).Msg("openai_embed_error")
		return nil, corerr.Wrap(corerr.UpstreamFailure, "openai embedding", err)
	}
	if len(resp.Data) == 0 {
		return nil, corerr.New(corerr.UpstreamFailure, "openai returned no embedding data")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
