package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebFetchHandler_StripsMarkupAndNavigation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>x</title></head><body>
<nav>menu</nav>
<article><p>Hello</p><p>World</p></article>
<script>evil()</script>
</body></html>`))
	}))
	defer srv.Close()

	h := NewWebFetchHandler()
	out, err := h.Invoke(context.Background(), map[string]any{"url": srv.URL}, ports.ToolCallContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "World")
	assert.NotContains(t, out, "menu")
	assert.NotContains(t, out, "evil()")
}

func TestWebFetchHandler_NonOKStatusReturnsDescriptiveText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewWebFetchHandler()
	out, err := h.Invoke(context.Background(), map[string]any{"url": srv.URL}, ports.ToolCallContext{})
	require.NoError(t, err)
	assert.Contains(t, out, "404")
}

func TestWebFetchHandler_RejectsNonHTTPScheme(t *testing.T) {
	h := NewWebFetchHandler()
	_, err := h.Invoke(context.Background(), map[string]any{"url": "file:///etc/passwd"}, ports.ToolCallContext{})
	var e *corerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, corerr.ToolInvalidArgs, e.ToolKind)
}
