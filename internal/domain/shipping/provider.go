// internal/domain/shipping/provider.go
package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/your-org/feedmarket-backend/internal/config"
)

// RateProvider is the external rate/location API consumed by the
// resolver. Implemented over HTTP in production and faked in tests.
type RateProvider interface {
	GetRates(ctx context.Context, req *RateRequest) ([]Quote, error)
	SearchLocations(ctx context.Context, query string) ([]Location, error)
}

// HTTPProvider calls the shipping provider's REST API
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a rate provider client from configuration
func NewHTTPProvider(cfg *config.Config) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.Shipping.BaseURL, "/"),
		apiKey:  cfg.Shipping.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Shipping.Timeout,
		},
	}
}

type rateResponse struct {
	Results []struct {
		Courier  string `json:"code"`
		Services []struct {
			Service       string `json:"service"`
			Description   string `json:"description"`
			Cost          int64  `json:"cost"`
			EstimatedDays string `json:"etd"`
		} `json:"costs"`
	} `json:"results"`
}

type locationResponse struct {
	Results []struct {
		ID          string `json:"id"`
		Province    string `json:"province"`
		City        string `json:"city"`
		District    string `json:"district"`
		Subdistrict string `json:"subdistrict"`
		PostalCode  string `json:"postal_code"`
	} `json:"results"`
}

// GetRates fetches shipping service options for a route and weight.
// An empty result set is a valid outcome (no serviceable route), not
// an error.
func (p *HTTPProvider) GetRates(ctx context.Context, rateReq *RateRequest) ([]Quote, error) {
	form := url.Values{}
	form.Set("origin", rateReq.OriginID)
	form.Set("destination", rateReq.DestinationID)
	form.Set("weight", strconv.Itoa(rateReq.WeightGrams))
	form.Set("value", strconv.FormatInt(rateReq.DeclaredValue, 10))
	if rateReq.CashOnDelivery {
		form.Set("cod", "yes")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/cost", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("rate lookup rejected with status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}

	// Preserve the provider's own ranking; callers must not re-sort.
	var quotes []Quote
	for _, result := range body.Results {
		for _, svc := range result.Services {
			quotes = append(quotes, Quote{
				Courier:       result.Courier,
				Service:       svc.Service,
				Description:   svc.Description,
				Cost:          svc.Cost,
				EstimatedDays: svc.EstimatedDays,
			})
		}
	}

	return quotes, nil
}

// SearchLocations looks up normalized location records matching a
// free-text query
func (p *HTTPProvider) SearchLocations(ctx context.Context, query string) ([]Location, error) {
	endpoint := fmt.Sprintf("%s/destination?search=%s", p.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create location request: %w", err)
	}
	req.Header.Set("key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("location search rejected with status %d", resp.StatusCode)
	}

	var body locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode location response: %w", err)
	}

	locations := make([]Location, 0, len(body.Results))
	for _, result := range body.Results {
		locations = append(locations, Location{
			ID:          result.ID,
			Province:    result.Province,
			City:        result.City,
			District:    result.District,
			Subdistrict: result.Subdistrict,
			PostalCode:  result.PostalCode,
		})
	}

	return locations, nil
}
