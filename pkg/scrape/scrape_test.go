package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head><title>Graceland</title></head>
<body>
  <nav><p>   </p></nav>
  <h1>Graceland</h1>
  <p>Built in 1939 by Dr. Thomas Moore.</p>
  <div class="marker"><p>Purchased by <b>Elvis Presley</b> in 1957.</p></div>
  <span>not a paragraph</span>
</body></html>`

func TestFetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := New(nil, "").FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Built in 1939 by Dr. Thomas Moore. Purchased by Elvis Presley in 1957.", text)
}

func TestFetchTextCustomSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	text, err := New(srv.Client(), ".marker").FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Purchased by Elvis Presley in 1957.", text)
}

func TestFetchTextBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(nil, "").FetchText(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "404")
}

func TestFetchTextBadURL(t *testing.T) {
	_, err := New(nil, "").FetchText(context.Background(), "://not a url")
	assert.Error(t, err)
}
