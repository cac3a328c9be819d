package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func ollamaServer(t *testing.T, handler http.HandlerFunc) *Ollama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllama(srv.URL, "test-model", 0.2)
}

func collect(tokens *[]string) TokenFunc {
	return func(tok string) error {
		*tokens = append(*tokens, tok)
		return nil
	}
}

func TestOllama_StreamDeliversTokensInOrder(t *testing.T) {
	c := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Accept"))
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "test-model", req.Model)

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"response":"[{\"tag\"","done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"response":":\"go\"}]","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	})

	var got []string
	require.NoError(t, c.Stream(context.Background(), "prompt", collect(&got)))
	assert.Equal(t, `[{"tag":"go"}]`, strings.Join(got, ""))
	assert.Len(t, got, 2)
}

func TestOllama_StreamEndsWithoutDone(t *testing.T) {
	c := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"partial","done":false}`)
	})
	var got []string
	err := c.Stream(context.Background(), "p", collect(&got))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before done")
	assert.Equal(t, []string{"partial"}, got)
}

func TestOllama_StreamErrorChunk(t *testing.T) {
	c := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"model overloaded"}`)
	})
	err := c.Stream(context.Background(), "p", func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestOllama_StatusError(t *testing.T) {
	c := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'x' not found"}`, http.StatusNotFound)
	})
	_, err := c.Generate(context.Background(), "p")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "not found")
}

func TestOllama_Generate(t *testing.T) {
	c := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.False(t, req.Stream)
		fmt.Fprint(w, `{"response":"hello","done":true}`)
	})
	out, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOllama_CallbackErrorAborts(t *testing.T) {
	c := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"a","done":false}`)
		fmt.Fprintln(w, `{"response":"b","done":false}`)
		fmt.Fprintln(w, `{"done":true}`)
	})
	stop := errors.New("stop")
	var n int
	err := c.Stream(context.Background(), "p", func(string) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestOllama_CancelClosesConnection(t *testing.T) {
	closed := make(chan struct{})
	c := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"response":"first","done":false}`)
		flusher.Flush()
		<-r.Context().Done()
		close(closed)
	})

	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Stream(ctx, "p", func(tok string) error {
			got = append(got, tok)
			cancel()
			return nil
		})
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not return after cancel")
	}
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe the closed connection")
	}
	assert.Equal(t, []string{"first"}, got)
}

func TestOpenAI_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{`{\"tag\":`, `\"graphs\"}`} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"%s\"}}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL+"/v1", "secret", "local", 0)
	var got []string
	require.NoError(t, c.Stream(context.Background(), "p", collect(&got)))
	assert.Equal(t, `{"tag":"graphs"}`, strings.Join(got, ""))
}

func TestOpenAI_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"[]"}}]}`)
	}))
	defer srv.Close()

	out, err := NewOpenAI(srv.URL+"/v1", "k", "local", 0).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

type countingClient struct{ calls int }

func (c *countingClient) Model() string { return "fake" }
func (c *countingClient) Generate(context.Context, string) (string, error) {
	c.calls++
	return "", nil
}
func (c *countingClient) Stream(context.Context, string, TokenFunc) error {
	c.calls++
	return nil
}

func TestLimited_WaitRespectsCancellation(t *testing.T) {
	inner := &countingClient{}
	l := NewLimited(inner, rate.NewLimiter(rate.Every(time.Hour), 1))

	require.NoError(t, l.Stream(context.Background(), "p", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Stream(ctx, "p", nil)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}

func TestNew_WrapsWithLimiter(t *testing.T) {
	c, err := New(Config{Backend: BackendOllama, Model: "m", RatePerSecond: 2, Burst: 1}, nil)
	require.NoError(t, err)
	_, ok := c.(*Limited)
	assert.True(t, ok)
	assert.Equal(t, "m", c.Model())
}
