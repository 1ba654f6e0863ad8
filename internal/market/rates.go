package market

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/lending"
)

// defaultSecondsPerYear is used when the rate model exposes no
// SECONDS_PER_YEAR accessor: 365 * 24 * 3600.
var defaultSecondsPerYear = big.NewInt(31_536_000)

// annualRates derives per-year borrow and supply rates from the market's
// interest-rate model. Models without per-year accessors fall back to
// per-second rates scaled by seconds per year. Absent when cash or
// borrows are unknown or the model address cannot be read.
func (r *Reader) annualRates(ctx context.Context, market common.Address, marketABI abi.ABI, cash, borrows, reserves *big.Int) (*big.Int, *big.Int) {
	if cash == nil || borrows == nil {
		return nil, nil
	}

	values, ok := r.callOpt(ctx, market, marketABI, "interestRateModel")
	if !ok {
		return nil, nil
	}
	rateModel, err := lending.AsAddress(values[0])
	if err != nil {
		return nil, nil
	}

	rateModelABI, err := lending.RateModelABI()
	if err != nil {
		return nil, nil
	}

	reserveFactor := r.callBig(ctx, market, marketABI, "reserveFactorMantissa")
	if reserveFactor == nil {
		reserveFactor = big.NewInt(0)
	}
	if reserves == nil {
		reserves = big.NewInt(0)
	}

	borrowRate := r.callBig(ctx, rateModel, rateModelABI, "getBorrowRatePerYear", cash, borrows, reserves)
	if borrowRate == nil {
		if perSecond := r.callBig(ctx, rateModel, rateModelABI, "getBorrowRate", cash, borrows, reserves); perSecond != nil {
			borrowRate = new(big.Int).Mul(perSecond, r.secondsPerYear(ctx, rateModel, rateModelABI))
		}
	}

	supplyRate := r.callBig(ctx, rateModel, rateModelABI, "getSupplyRatePerYear", cash, borrows, reserves, reserveFactor)
	if supplyRate == nil {
		if perSecond := r.callBig(ctx, rateModel, rateModelABI, "getSupplyRate", cash, borrows, reserves, reserveFactor); perSecond != nil {
			supplyRate = new(big.Int).Mul(perSecond, r.secondsPerYear(ctx, rateModel, rateModelABI))
		}
	}

	return borrowRate, supplyRate
}

func (r *Reader) secondsPerYear(ctx context.Context, rateModel common.Address, rateModelABI abi.ABI) *big.Int {
	if seconds := r.callBig(ctx, rateModel, rateModelABI, "SECONDS_PER_YEAR"); seconds != nil {
		return seconds
	}
	return defaultSecondsPerYear
}
