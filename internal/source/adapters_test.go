package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleBooks_Search(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"q":            q.Get("q"),
			"orderBy":      q.Get("orderBy"),
			"langRestrict": q.Get("langRestrict"),
			"maxResults":   q.Get("maxResults"),
			"key":          q.Get("key"),
		}
		_, _ = w.Write([]byte(`{"totalItems":2,"items":[
			{"volumeInfo":{"title":"Meditations","authors":["Marcus Aurelius"],"description":"notes","averageRating":4.5,"ratingsCount":120}},
			{"volumeInfo":{"title":""}}]}`))
	}))
	defer srv.Close()

	gb := NewGoogleBooks("secret")
	gb.BaseURL = srv.URL

	got, err := gb.Search(context.Background(), "Stoicism")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, map[string]string{
		"q": "Stoicism", "orderBy": "relevance", "langRestrict": "en", "maxResults": "20", "key": "secret",
	}, gotQuery)

	c := got[0]
	assert.Equal(t, "Meditations", c.Title)
	assert.Equal(t, "Unknown Publisher", c.Publisher)
	assert.Equal(t, "Unknown Date", c.PublishedDate)
	assert.Equal(t, 4.5, c.Signal(SignalCatalogRating))
	assert.Equal(t, 120.0, c.Signal(SignalCatalogRatingsCount))
	assert.Equal(t, GoogleBooksName, c.Source)
}

func TestGoogleBooks_NoItemsIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	gb := NewGoogleBooks("")
	gb.BaseURL = srv.URL
	got, err := gb.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGoogleBooks_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gb := NewGoogleBooks("")
	gb.BaseURL = srv.URL
	_, err := gb.Search(context.Background(), "x")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
}

func TestTavily_RequiresKey(t *testing.T) {
	_, err := NewTavily("").Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestTavily_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "best books on Stoicism", req.Query)
		assert.Equal(t, 5, req.MaxResults)
		fmt.Fprint(w, `{"results":[{"title":"Letters","url":"u","content":"c","score":0.5}]}`)
	}))
	defer srv.Close()

	tv := NewTavily("k")
	tv.BaseURL = srv.URL
	got, err := tv.Search(context.Background(), "Stoicism")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Description)
	assert.Equal(t, 0.5, got[0].Signal(SignalSearchScore))
}

func TestCandidate_WithSignalCopies(t *testing.T) {
	orig := Candidate{Title: "x", Signals: map[string]float64{"a": 1}}
	next := orig.WithSignal("b", 2)
	assert.Equal(t, 0.0, orig.Signal("b"))
	assert.Equal(t, 2.0, next.Signal("b"))
	assert.Equal(t, 1.0, next.Signal("a"))
}
