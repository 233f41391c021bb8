package domain

// MarketSnapshot holds per-ticker market data captured from the quote
// provider at fetch time. The connector rejects payloads missing both
// market cap and enterprise value, so a snapshot that reaches the
// pipeline always carries at least one valuation anchor.
type MarketSnapshot struct {
	Ticker          string
	CompanyName     string
	Sector          string
	Industry        string
	MarketCap       Figure // USD
	EnterpriseValue Figure // USD
	TotalDebt       Figure // USD
	TotalCash       Figure // USD
	EBITDA          Figure // USD, trailing twelve months per provider
	FetchedAt       int64  // Unix timestamp in milliseconds
}
