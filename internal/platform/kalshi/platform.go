package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/oddsline/newsflow/internal/model"
)

// platformName namespaces all Kalshi tickers in the store.
const platformName = "kalshi"

// pageSize is the maximum listing page size the API allows.
const pageSize = 1000

// marketURLBase is the public market page prefix.
const marketURLBase = "https://kalshi.com/markets/"

// Config configures the Kalshi platform adapter.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Platform implements market listing and order entry against Kalshi.
type Platform struct {
	client *client
	logger *slog.Logger
}

// Option configures a Platform.
type Option func(*Platform)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Platform) {
		p.client.httpClient = hc
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) Option {
	return func(p *Platform) {
		p.client.maxRetries = max
		p.client.retryBackoff = backoff
	}
}

// New creates a Kalshi platform adapter.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &Platform{
		client: &client{
			baseURL:      cfg.BaseURL,
			apiKey:       cfg.APIKey,
			httpClient:   &http.Client{Timeout: timeout},
			logger:       logger.With("platform", platformName),
			maxRetries:   3,
			retryBackoff: time.Second,
		},
		logger: logger.With("platform", platformName),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Platform) Name() string { return platformName }

// ListAll pages through every open market and returns them as flat contracts.
// The event ticker rides in metadata for the syncer to group on.
func (p *Platform) ListAll(ctx context.Context) (model.Listing, error) {
	var contracts []model.ContractData
	cursor := ""

	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(pageSize))
		query.Set("status", "open")
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp marketsResponse
		if err := p.client.get(ctx, "/markets", query, &resp); err != nil {
			return model.Listing{}, fmt.Errorf("list markets: %w", err)
		}

		for _, m := range resp.Markets {
			contracts = append(contracts, toContractData(m))
		}

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	p.logger.Debug("listing fetched", "contracts", len(contracts))
	return model.Listing{Contracts: contracts}, nil
}

// GetContract fetches one market by ticker. A 404 is returned as an error;
// callers treat any error as contract-unavailable.
func (p *Platform) GetContract(ctx context.Context, ticker string) (*model.ContractData, error) {
	var resp singleMarketResponse
	if err := p.client.get(ctx, "/markets/"+ticker, nil, &resp); err != nil {
		return nil, fmt.Errorf("get market %s: %w", ticker, err)
	}
	data := toContractData(resp.Market)
	return &data, nil
}

// PlaceOrder submits an order. Buy positions take the yes side price, sell
// positions the no side; the caller has already resolved the side.
func (p *Platform) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error) {
	apiReq := orderRequest{
		Ticker:    req.ContractTicker,
		Action:    "buy",
		Side:      req.Side,
		Count:     req.Quantity,
		Type:      req.Type,
		ClientOID: uuid.NewString(),
	}
	priceCents := toCents(req.LimitPrice)
	switch req.Side {
	case "no":
		apiReq.NoPrice = priceCents
	default:
		apiReq.YesPrice = priceCents
	}

	var resp orderResponse
	if err := p.client.post(ctx, "/portfolio/orders", apiReq, &resp); err != nil {
		return model.OrderResult{}, fmt.Errorf("place order %s: %w", req.ContractTicker, err)
	}

	avgPrice := fromCents(resp.Order.YesPrice)
	if req.Side == "no" {
		avgPrice = fromCents(resp.Order.NoPrice)
	}

	return model.OrderResult{
		OrderID:   resp.Order.OrderID,
		Status:    resp.Order.Status,
		FilledQty: resp.Order.FilledQty,
		AvgPrice:  avgPrice,
		Timestamp: time.Now().UTC(),
	}, nil
}

// toContractData converts an API market to the platform-neutral contract
// shape, normalizing cent prices to probabilities.
func toContractData(m apiMarket) model.ContractData {
	yes := fromCents(m.YesAsk)
	if m.YesAsk == 0 {
		yes = fromCents(m.LastPrice)
	}
	no := fromCents(m.NoAsk)
	if m.NoAsk == 0 && m.LastPrice > 0 {
		no = 1 - fromCents(m.LastPrice)
	}

	title := m.Subtitle
	if title == "" {
		title = m.Title
	}

	data := model.ContractData{
		ContractID: m.Ticker,
		Title:      title,
		YesPrice:   yes,
		NoPrice:    no,
		Volume:     float64(m.Volume),
		Liquidity:  float64(m.Liquidity),
		URL:        marketURLBase + m.EventTicker,
		Category:   m.Category,
		Metadata: map[string]string{
			"eventTicker": m.EventTicker,
		},
	}
	if m.Title != "" && m.Title != title {
		data.Metadata["marketTitle"] = m.Title
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		data.EndDate = &t
	}
	return data
}

// fromCents converts a cent price to a probability in [0, 1].
func fromCents(cents int) float64 {
	return float64(cents) / 100
}

// toCents converts a probability to a cent price, clamped to [1, 99].
func toCents(price float64) int {
	cents := int(price * 100)
	if cents < 1 {
		cents = 1
	}
	if cents > 99 {
		cents = 99
	}
	return cents
}
