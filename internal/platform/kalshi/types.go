package kalshi

// marketsResponse from GET /markets
type marketsResponse struct {
	Markets []apiMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// apiMarket is a single tradeable market (one contract in pipeline terms)
// as returned by the Kalshi API.
type apiMarket struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Status       string `json:"status"`
	MarketType   string `json:"market_type"`
	Category     string `json:"category"`

	// Prices in cents
	YesBid    int `json:"yes_bid"`
	YesAsk    int `json:"yes_ask"`
	NoBid     int `json:"no_bid"`
	NoAsk     int `json:"no_ask"`
	LastPrice int `json:"last_price"`

	Volume       int64 `json:"volume"`
	Volume24h    int64 `json:"volume_24h"`
	OpenInterest int64 `json:"open_interest"`
	Liquidity    int64 `json:"liquidity"`

	// Timestamps (ISO 8601)
	OpenTime       string `json:"open_time"`
	CloseTime      string `json:"close_time"`
	ExpirationTime string `json:"expiration_time"`
}

// singleMarketResponse from GET /markets/{ticker}
type singleMarketResponse struct {
	Market apiMarket `json:"market"`
}

// orderRequest for POST /portfolio/orders
type orderRequest struct {
	Ticker    string `json:"ticker"`
	Action    string `json:"action"` // "buy" or "sell"
	Side      string `json:"side"`   // "yes" or "no"
	Count     int    `json:"count"`
	Type      string `json:"type"` // "limit" or "market"
	YesPrice  int    `json:"yes_price,omitempty"`
	NoPrice   int    `json:"no_price,omitempty"`
	ClientOID string `json:"client_order_id,omitempty"`
}

// orderResponse from POST /portfolio/orders
type orderResponse struct {
	Order struct {
		OrderID   string `json:"order_id"`
		Status    string `json:"status"`
		FilledQty int    `json:"filled_count"`
		YesPrice  int    `json:"yes_price"`
		NoPrice   int    `json:"no_price"`
	} `json:"order"`
}
