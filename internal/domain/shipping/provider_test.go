// internal/domain/shipping/provider_test.go
package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/feedmarket-backend/internal/config"
)

func newTestProvider(baseURL string) *HTTPProvider {
	return NewHTTPProvider(&config.Config{
		Shipping: config.ShippingConfig{
			BaseURL: baseURL,
			APIKey:  "test-key",
			Timeout: time.Second,
		},
	})
}

func TestHTTPProviderGetRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cost", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "5819", r.PostForm.Get("origin"))
		assert.Equal(t, "1391", r.PostForm.Get("destination"))
		assert.Equal(t, "20000", r.PostForm.Get("weight"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"code":"jne","costs":[
			{"service":"REG","description":"Layanan Reguler","cost":15000,"etd":"2-3"},
			{"service":"YES","description":"Yakin Esok Sampai","cost":28000,"etd":"1"}
		]}]}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	quotes, err := provider.GetRates(context.Background(), &RateRequest{
		OriginID:      "5819",
		DestinationID: "1391",
		WeightGrams:   20000,
		DeclaredValue: 130000,
	})
	require.NoError(t, err)

	// Provider ranking preserved, never re-sorted
	require.Len(t, quotes, 2)
	assert.Equal(t, Quote{Courier: "jne", Service: "REG", Description: "Layanan Reguler", Cost: 15000, EstimatedDays: "2-3"}, quotes[0])
	assert.Equal(t, "YES", quotes[1].Service)
}

func TestHTTPProviderGetRatesNoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	quotes, err := provider.GetRates(context.Background(), &RateRequest{
		OriginID: "5819", DestinationID: "9999", WeightGrams: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestHTTPProviderGetRatesServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	_, err := provider.GetRates(context.Background(), &RateRequest{
		OriginID: "5819", DestinationID: "1391", WeightGrams: 100,
	})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHTTPProviderGetRatesClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	_, err := provider.GetRates(context.Background(), &RateRequest{
		OriginID: "5819", DestinationID: "1391", WeightGrams: 100,
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
}

func TestHTTPProviderSearchLocations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/destination", r.URL.Path)
		assert.Equal(t, "sleman", r.URL.Query().Get("search"))

		w.Write([]byte(`{"results":[
			{"id":"1391","province":"DI Yogyakarta","city":"Sleman","district":"Depok","subdistrict":"Caturtunggal","postal_code":"55281"},
			{"id":"1392","province":"DI Yogyakarta","city":"Sleman","district":"Mlati","subdistrict":"Sinduadi","postal_code":"55284"}
		]}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)
	locations, err := provider.SearchLocations(context.Background(), "sleman")
	require.NoError(t, err)

	require.Len(t, locations, 2)
	assert.Equal(t, "1391", locations[0].ID)
	assert.Equal(t, "Caturtunggal", locations[0].Subdistrict)
}
