package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("shipping api key is required")

// Quote is one priced courier service for a store group.
type Quote struct {
	CourierCode string `json:"courier_code"`
	ServiceCode string `json:"service_code"`
	Description string `json:"description"`
	FeeMinor    int64  `json:"fee_minor"`
	EtdMinDays  int    `json:"etd_min_days"`
	EtdMaxDays  int    `json:"etd_max_days"`
}

// RateRequest asks for courier quotes between two cities for a given weight.
type RateRequest struct {
	OriginCityID      string
	DestinationCityID string
	WeightGrams       int
	CourierCode       string
}

// RateService quotes courier costs. The HTTP client talks to a
// RajaOngkir-compatible API; tests substitute a fake.
type RateService interface {
	Rates(ctx context.Context, req RateRequest) ([]Quote, error)
}

// Client calls the rate provider's cost endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the rate client from configuration.
func NewClient(cfg config.ShippingConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Rates fetches the courier's priced services for one origin/destination
// pair. Weight below the provider's 1kg minimum is billed as 1kg by the
// provider itself; it is passed through untouched.
func (c *Client) Rates(ctx context.Context, req RateRequest) ([]Quote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shipping client not configured")
	}
	if req.OriginCityID == "" || req.DestinationCityID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin and destination are required")
	}
	if req.WeightGrams <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	if req.CourierCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier code is required")
	}

	form := url.Values{}
	form.Set("origin", req.OriginCityID)
	form.Set("destination", req.DestinationCityID)
	form.Set("weight", strconv.Itoa(req.WeightGrams))
	form.Set("courier", req.CourierCode)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cost", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build rate request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute rate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "rate request failed")
	}

	var apiResp struct {
		Rajaongkir struct {
			Results []struct {
				Code  string `json:"code"`
				Costs []struct {
					Service     string `json:"service"`
					Description string `json:"description"`
					Cost        []struct {
						Value int64  `json:"value"`
						Etd   string `json:"etd"`
					} `json:"cost"`
				} `json:"costs"`
			} `json:"results"`
		} `json:"rajaongkir"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode rate response")
	}

	quotes := make([]Quote, 0)
	for _, result := range apiResp.Rajaongkir.Results {
		for _, cost := range result.Costs {
			if len(cost.Cost) == 0 {
				continue
			}
			minDays, maxDays := parseEtd(cost.Cost[0].Etd)
			quotes = append(quotes, Quote{
				CourierCode: result.Code,
				ServiceCode: cost.Service,
				Description: cost.Description,
				FeeMinor:    cost.Cost[0].Value,
				EtdMinDays:  minDays,
				EtdMaxDays:  maxDays,
			})
		}
	}
	return quotes, nil
}

// parseEtd handles the provider's "2-3", "2", and "" day-range formats.
func parseEtd(raw string) (int, int) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(raw), "HARI"))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, 0
	}
	parts := strings.SplitN(cleaned, "-", 2)
	minDays, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0
	}
	if len(parts) == 1 {
		return minDays, minDays
	}
	maxDays, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return minDays, minDays
	}
	return minDays, maxDays
}
