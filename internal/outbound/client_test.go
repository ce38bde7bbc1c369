package outbound

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/some/path", r.URL.Path)
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithBearerToken("token123"))
	body, err := c.Get(context.Background(), "/some/path")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestGetAbsoluteURLBypassesBase(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	c := NewClient("http://base.invalid", time.Second)
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestGetStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Get(context.Background(), "/")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
	assert.Equal(t, "nope", statusErr.Body)
}

func TestGetRetriesUpToConfiguredCount(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithRetries(2))
	_, err := c.Get(context.Background(), "/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestGetRecoversWithinRetryBudget(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "recovered")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithRetries(2))
	body, err := c.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
}

func TestGetZeroRetriesFailsFast(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Get(context.Background(), "/")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExhaustedRetries))
	assert.EqualValues(t, 1, attempts.Load())
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"value"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/", &out))
	assert.Equal(t, "value", out.Name)
}
