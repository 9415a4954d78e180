package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesWithinTTL(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"value": 42}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{}, time.Minute, nil)
	defer client.Close()

	first, err := client.Get(context.Background(), "/items", nil, true)
	require.NoError(t, err)
	second, err := client.Get(context.Background(), "/items", nil, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetCacheKeyIncludesSortedParams(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{}, time.Minute, nil)
	defer client.Close()

	_, err := client.Get(context.Background(), "/items", map[string]string{"b": "2", "a": "1"}, true)
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/items", map[string]string{"a": "1", "b": "2"}, true)
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/items", map[string]string{"a": "1"}, true)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetSingleFlight(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"value": 1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{}, time.Minute, nil)
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Get(context.Background(), "/slow", nil, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryExhaustion(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{}, time.Minute, nil)
	defer client.Close()

	start := time.Now()
	_, err := client.Get(context.Background(), "/broken", nil, false)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	// Every failed attempt sleeps, the last one included: 0.5s, 1s, 2s.
	assert.GreaterOrEqual(t, elapsed, 3400*time.Millisecond)
}

func TestMutatingVerbInvalidatesCache(t *testing.T) {
	var gets int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{}, time.Minute, nil)
	defer client.Close()

	ctx := context.Background()
	_, err := client.Get(ctx, "/items", nil, true)
	require.NoError(t, err)
	_, err = client.Get(ctx, "/items", nil, true)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&gets))

	_, err = client.Post(ctx, "/items", CallOptions{Body: map[string]any{"name": "x"}, InvalidateCache: true})
	require.NoError(t, err)

	_, err = client.Get(ctx, "/items", nil, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&gets))
}

func TestAuthHeaders(t *testing.T) {
	var apiKey, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{APIKey: "demo-key"}, time.Minute, nil)
	defer client.Close()

	_, err := client.Get(context.Background(), "/items", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "demo-key", apiKey)
	assert.Empty(t, auth)

	_, err = client.Post(context.Background(), "/items", CallOptions{BearerToken: "override-token"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer override-token", auth)
}

func TestNonJSONBodyReturnsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text body"))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{}, time.Minute, nil)
	defer client.Close()

	result, err := client.Get(context.Background(), "/text", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "plain text body", result)
}

func TestClosedClient(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", Credentials{}, time.Minute, nil)
	client.Close()

	_, err := client.Get(context.Background(), "/items", nil, true)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = client.Delete(context.Background(), "/items/1", CallOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolReusesClients(t *testing.T) {
	pool := NewPool(time.Minute, nil)
	defer pool.Close()

	a := pool.Client("http://localhost:9001", Credentials{APIKey: "k1"})
	b := pool.Client("http://localhost:9001", Credentials{APIKey: "k1"})
	c := pool.Client("http://localhost:9001", Credentials{APIKey: "k2"})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
