package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadAddr(t *testing.T) {
	_, err := New("not-a-url")
	require.Error(t, err)
}

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mod/v1/x/abc", r.URL.Path)
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	body, status, err := c.Fetch(t.Context(), "/mod/v1/x/abc", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":"abc"}`, string(body))
}

func TestFetchForwardsExtraHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		assert.Equal(t, "acme", r.Header.Get("Organization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	extra := http.Header{}
	extra.Set("Authorization", "Bearer caller-token")
	extra.Set("Organization", "acme")

	_, _, err = c.Fetch(t.Context(), "/x", extra)
	require.NoError(t, err)
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, status, err := c.Fetch(t.Context(), "/missing", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 1, calls)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	body, _, err := c.Fetch(t.Context(), "/flaky", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, 3, calls)
}
