package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm-cart/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL:    srv.URL + "/",
		Timeout:    timeout,
		HTTPClient: srv.Client(),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_DefaultTimeout(t *testing.T) {
	c, err := New(Config{BaseURL: "http://catalog.test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, "http://catalog.test", c.baseURL)
}

func TestLookupItem_Found(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/books/42", r.URL.Path)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":42,"book_title":"Dune","book_price":"12.50","discount_price":"9.99",
			"book_summary":"spice","book_cover_photo":"dune.jpg","author":{"author_name":"Frank Herbert"}}`)
	}, time.Second)

	res := c.LookupItem(context.Background(), 42)

	require.Equal(t, Found, res.Status, "err: %v", res.Err)
	require.NotNil(t, res.Item)
	assert.Equal(t, model.ItemID(42), res.Item.ID)
	assert.Equal(t, "Dune", res.Item.Title)
	assert.Equal(t, "Frank Herbert", res.Item.AuthorName)
	assert.Equal(t, "dune.jpg", res.Item.ImageURL)
	assert.Equal(t, model.Money(1250), res.Item.UnitPrice)
	require.NotNil(t, res.Item.DiscountPrice)
	assert.Equal(t, model.Money(999), *res.Item.DiscountPrice)
	assert.NoError(t, res.Err)
}

func TestLookupItem_NumericPriceAndNullDiscount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":7,"book_title":"Emma","book_price":8.5,"discount_price":null,"book_cover_photo":null}`)
	}, time.Second)

	res := c.LookupItem(context.Background(), 7)

	require.Equal(t, Found, res.Status, "err: %v", res.Err)
	assert.Equal(t, model.Money(850), res.Item.UnitPrice)
	assert.Nil(t, res.Item.DiscountPrice)
	assert.Empty(t, res.Item.ImageURL)
}

func TestLookupItem_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"Book not found"}`)
	}, time.Second)

	res := c.LookupItem(context.Background(), 1)

	assert.Equal(t, NotFound, res.Status)
	assert.Nil(t, res.Item)
	assert.NoError(t, res.Err)
}

func TestLookupItem_Failed(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, model.ErrUpstreamError},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"nope"}`, model.ErrUpstreamError},
		{"not json", http.StatusOK, `<html>`, model.ErrUpstreamError},
		{"id mismatch", http.StatusOK, `{"id":2,"book_title":"X","book_price":"1.00"}`, model.ErrUpstreamError},
		{"missing title", http.StatusOK, `{"id":1,"book_price":"1.00"}`, model.ErrUpstreamError},
		{"missing price", http.StatusOK, `{"id":1,"book_title":"X"}`, model.ErrUpstreamError},
		{"bad price", http.StatusOK, `{"id":1,"book_title":"X","book_price":"free"}`, model.ErrUpstreamError},
		{"negative price", http.StatusOK, `{"id":1,"book_title":"X","book_price":"-1.00"}`, model.ErrUpstreamError},
		{"price out of range", http.StatusOK, `{"id":1,"book_title":"X","book_price":"99999999999.00"}`, model.ErrUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}, time.Second)

			res := c.LookupItem(context.Background(), 1)

			assert.Equal(t, Failed, res.Status)
			assert.Nil(t, res.Item)
			assert.True(t, errors.Is(res.Err, tt.sentinel), "err = %v", res.Err)
		})
	}
}

func TestLookupItem_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)

	start := time.Now()
	res := c.LookupItem(context.Background(), 1)

	assert.Equal(t, Failed, res.Status)
	assert.ErrorIs(t, res.Err, model.ErrNetwork)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLookupItem_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second, Logger: discardLogger()})
	require.NoError(t, err)

	res := c.LookupItem(context.Background(), 1)
	assert.Equal(t, Failed, res.Status)
	assert.ErrorIs(t, res.Err, model.ErrNetwork)
}

func TestLookupItem_ConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var id int
		fmt.Sscanf(r.URL.Path, "/books/%d", &id)
		fmt.Fprintf(w, `{"id":%d,"book_title":"Book %d","book_price":"1.00"}`, id, id)
	}, time.Second)

	results := make(chan Result, 10)
	for i := 1; i <= 10; i++ {
		go func(id model.ItemID) { results <- c.LookupItem(context.Background(), id) }(model.ItemID(i))
	}
	for i := 0; i < 10; i++ {
		res := <-results
		assert.Equal(t, Found, res.Status)
	}
	assert.Equal(t, int32(10), hits.Load())
}
