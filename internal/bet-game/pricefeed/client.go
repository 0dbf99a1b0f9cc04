package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

// Client consulta a API simple/price (formato CoinGecko) para uma moeda
type Client struct {
	BaseURL string
	CoinID  string
	APIKey  string
	HTTP    *http.Client
}

func New(base, coinID, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		CoinID:  coinID,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Quote retorna a cotação atual do coin em currency.
// Qualquer falha é reportada envolvendo domain.ErrUpstreamUnavailable.
func (c *Client) Quote(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToLower(currency)

	q := url.Values{}
	q.Set("ids", c.CoinID)
	q.Set("vs_currencies", currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, upstream(currency, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, upstream(currency, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return 0, upstream(currency, fmt.Errorf("http %d", res.StatusCode))
	}

	// {"bitcoin":{"usd":67000.12}}
	var out map[string]map[string]float64
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, upstream(currency, fmt.Errorf("decode: %w", err))
	}
	price, ok := out[c.CoinID][currency]
	if !ok {
		return 0, upstream(currency, fmt.Errorf("no %s price for %s", currency, c.CoinID))
	}
	return price, nil
}

func upstream(currency string, err error) error {
	return fmt.Errorf("%w: quote %s: %v", domain.ErrUpstreamUnavailable, currency, err)
}
