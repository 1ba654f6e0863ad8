package model

// MarketSnapshot is a point-in-time view of one lending market.
//
// Every derived field is optional: an upstream call failure leaves the
// field nil without invalidating the rest of the snapshot. Big integer
// amounts are decimal strings to survive JSON round-trips.
type MarketSnapshot struct {
	Market            string   `json:"market"`
	Underlying        *string  `json:"underlying"`
	Symbol            *string  `json:"symbol"`
	Decimals          *uint8   `json:"decimals"`
	TotalSupply       *string  `json:"totalSupply"`
	TotalBorrows      *string  `json:"totalBorrows"`
	TotalReserves     *string  `json:"totalReserves"`
	Cash              *string  `json:"cash"`
	ExchangeRate      *string  `json:"exchangeRate"`
	Utilization       *float64 `json:"utilization"`
	BorrowRatePerYear *string  `json:"borrowRatePerYear"`
	SupplyRatePerYear *string  `json:"supplyRatePerYear"`
	Price             *string  `json:"price"`
	CollateralFactor  *string  `json:"collateralFactor"`
	IsListed          *bool    `json:"isListed"`
}

// Position is one account's holdings in one market.
type Position struct {
	Market           string  `json:"market"`
	Underlying       *string `json:"underlying"`
	Symbol           *string `json:"symbol"`
	Decimals         *uint8  `json:"decimals"`
	SupplyTokens     *string `json:"supplyDToken"`
	SupplyUnderlying *string `json:"supplyUnderlying"`
	BorrowBalance    *string `json:"borrowBalance"`
	ExchangeRate     *string `json:"exchangeRate"`
	Price            *string `json:"price"`
	CollateralFactor *string `json:"collateralFactor"`
	IsListed         *bool   `json:"isListed"`
}

// AccountSnapshot is the account-level view across all markets.
// IsHealthy is nil when the shortfall could not be read.
type AccountSnapshot struct {
	Account   string     `json:"account"`
	Liquidity *string    `json:"liquidity"`
	Shortfall *string    `json:"shortfall"`
	IsHealthy *bool      `json:"isHealthy"`
	Positions []Position `json:"positions"`
}
