package model

// AssetSnapshot is one market-data row for a single asset, captured at fetch
// time. Snapshots are created fresh each cycle and never mutated afterwards.
type AssetSnapshot struct {
	ID                string  `json:"id"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	ImageURL          string  `json:"image"`
	CurrentPrice      float64 `json:"current_price"`
	TotalVolume       float64 `json:"total_volume"`
	MarketCap         float64 `json:"market_cap"`
	PriceChangePct24h float64 `json:"price_change_percentage_24h"`
}
