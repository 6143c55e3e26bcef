package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "ARS"

var ErrUnavailable = errors.New("payments: service unavailable")

type LineItem struct {
	Title     string          `json:"title"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency_id"`
}

type CallbackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Client talks to the external checkout provider. The provider is
// opaque: line items and callback URLs in, a redirect URL out.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type preferenceRequest struct {
	ExternalReference string       `json:"external_reference"`
	Items             []LineItem   `json:"items"`
	BackURLs          CallbackURLs `json:"back_urls"`
	AutoReturn        string       `json:"auto_return"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (c *Client) CreatePreference(ctx context.Context, ref uuid.UUID, items []LineItem, urls CallbackURLs) (string, error) {
	body, err := json.Marshal(preferenceRequest{
		ExternalReference: ref.String(),
		Items:             items,
		BackURLs:          urls,
		AutoReturn:        "approved",
	})
	if err != nil {
		return "", fmt.Errorf("marshal preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("preference failed with status: %d", resp.StatusCode)
	}

	var result preferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.InitPoint == "" {
		return "", fmt.Errorf("empty init_point in response")
	}

	return result.InitPoint, nil
}
