package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreference(t *testing.T) {
	ref := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer tkn-123", r.Header.Get("Authorization"))

		var req preferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ref.String(), req.ExternalReference)
		require.Len(t, req.Items, 1)
		assert.Equal(t, "Mate imperial", req.Items[0].Title)
		assert.Equal(t, "https://shop.example/ok", req.BackURLs.Success)
		assert.Equal(t, "approved", req.AutoReturn)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/init/pref-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tkn-123")
	initURL, err := c.CreatePreference(context.Background(), ref, []LineItem{{
		Title:     "Mate imperial",
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("1500.00"),
		Currency:  DefaultCurrency,
	}}, CallbackURLs{Success: "https://shop.example/ok"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/init/pref-1", initURL)
}

func TestCreatePreferenceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad")
	_, err := c.CreatePreference(context.Background(), uuid.New(), nil, CallbackURLs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCreatePreferenceMissingInitPoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"pref-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tkn")
	_, err := c.CreatePreference(context.Background(), uuid.New(), nil, CallbackURLs{})
	require.Error(t, err)
}
