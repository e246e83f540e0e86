package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsundokuapp/tsundoku/pkg/errcodes"
)

func TestClient_Search(t *testing.T) {
	t.Run("normalizes catalog hits", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/volumes", r.URL.Path)
			assert.Equal(t, "intitle:kokoro", r.URL.Query().Get("q"))
			assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"totalItems": 1,
				"items": [{
					"id": "abc123",
					"volumeInfo": {
						"title": "Kokoro",
						"authors": ["Natsume Soseki", "Edwin McClellan"],
						"publisher": "Regnery",
						"publishedDate": "1957",
						"industryIdentifiers": [
							{"type": "ISBN_10", "identifier": "0895267152"},
							{"type": "ISBN_13", "identifier": "9780895267153"}
						],
						"imageLinks": {"thumbnail": "http://books.example.com/kokoro.jpg"}
					}
				}]
			}`))
		}))
		defer srv.Close()

		client := NewClient("test-key", time.Second)
		client.booksURL = srv.URL

		volumes, err := client.Search(context.Background(), "kokoro")
		require.NoError(t, err)
		require.Len(t, volumes, 1)

		v := volumes[0]
		assert.Equal(t, "abc123", v.ID)
		assert.Equal(t, "Kokoro", v.Title)
		assert.Equal(t, "Natsume Soseki, Edwin McClellan", v.Author)
		assert.Equal(t, "9780895267153", v.ISBN)
		assert.Equal(t, "https://books.example.com/kokoro.jpg", v.CoverURL)
	})

	t.Run("falls back to ISBN-10", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"totalItems": 1,
				"items": [{
					"id": "x",
					"volumeInfo": {
						"title": "Botchan",
						"industryIdentifiers": [{"type": "ISBN_10", "identifier": "0870334794"}]
					}
				}]
			}`))
		}))
		defer srv.Close()

		client := NewClient("test-key", time.Second)
		client.booksURL = srv.URL

		volumes, err := client.Search(context.Background(), "botchan")
		require.NoError(t, err)
		require.Len(t, volumes, 1)
		assert.Equal(t, "0870334794", volumes[0].ISBN)
	})

	t.Run("no items means an empty result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"totalItems": 0}`))
		}))
		defer srv.Close()

		client := NewClient("test-key", time.Second)
		client.booksURL = srv.URL

		volumes, err := client.Search(context.Background(), "nothing")
		require.NoError(t, err)
		assert.Empty(t, volumes)
	})

	t.Run("upstream failures surface as upstream errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewClient("test-key", time.Second)
		client.booksURL = srv.URL

		_, err := client.Search(context.Background(), "kokoro")
		appErr := &errcodes.Error{}
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "upstream_error", appErr.Code)
	})
}

func TestClient_CoverForISBN(t *testing.T) {
	t.Run("finds a cover and returns the large size", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodHead, r.Method)
			assert.Equal(t, "/b/isbn/9784101001018-M.jpg", r.URL.Path)
			w.Header().Set("Content-Length", "54321")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewClient("", time.Second)
		client.coversURL = srv.URL

		coverURL, found := client.CoverForISBN(context.Background(), "978-4-10-100101-8")
		assert.True(t, found)
		assert.Equal(t, srv.URL+"/b/isbn/9784101001018-L.jpg", coverURL)
	})

	t.Run("tiny placeholders count as missing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "43")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewClient("", time.Second)
		client.coversURL = srv.URL

		_, found := client.CoverForISBN(context.Background(), "9784101001018")
		assert.False(t, found)
	})

	t.Run("probe failures count as missing", func(t *testing.T) {
		client := NewClient("", 100*time.Millisecond)
		client.coversURL = "http://127.0.0.1:1"

		_, found := client.CoverForISBN(context.Background(), "9784101001018")
		assert.False(t, found)
	})
}
