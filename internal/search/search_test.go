package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimercado/marketplace/internal/models"
)

// stubES answers like a single-node cluster so the client's product
// check passes.
func stubES(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/" {
			w.Write([]byte(`{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
			return
		}
		handler(w, r)
	}))
}

func TestSearchParsesHits(t *testing.T) {
	var gotBody map[string]any
	srv := stubES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Write([]byte(`{
			"hits": {
				"total": {"value": 2},
				"hits": [
					{"_source": {"id": 1, "title": "Pelota de fútbol", "price": "30.00", "active": true}},
					{"_source": {"id": 2, "title": "Pelota de básquet", "price": "35.00", "active": true}}
				]
			}
		}`))
	})
	defer srv.Close()

	es, err := NewClient(srv.URL, "", "")
	require.NoError(t, err)

	total, items, err := Search(context.Background(), es, "products", "pelota", 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Pelota de fútbol", items[0].Title)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("30.00")))

	// the query carries the fuzzy multi_match and the active filter
	q := gotBody["query"].(map[string]any)["bool"].(map[string]any)
	mm := q["must"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "pelota", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	filter := q["filter"].(map[string]any)["term"].(map[string]any)
	assert.Equal(t, true, filter["active"])
}

func TestSearchErrorStatus(t *testing.T) {
	srv := stubES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"search_phase_execution_exception"}}`))
	})
	defer srv.Close()

	es, err := NewClient(srv.URL, "", "")
	require.NoError(t, err)

	_, _, err = Search(context.Background(), es, "products", "x", 0, 20)
	require.Error(t, err)
}

func TestIndexProduct(t *testing.T) {
	var gotDoc models.Product
	srv := stubES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/_doc/7", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})
	defer srv.Close()

	es, err := NewClient(srv.URL, "", "")
	require.NoError(t, err)

	p := &models.Product{ID: 7, Title: "Mate", Price: decimal.NewFromInt(10), Active: true}
	require.NoError(t, IndexProduct(context.Background(), es, "products", p))
	assert.Equal(t, "Mate", gotDoc.Title)
}
