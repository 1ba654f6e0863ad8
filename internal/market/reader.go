package market

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lendingScope/internal/lending"
	"lendingScope/internal/model"
)

// ErrInvalidAddress marks malformed account input; the API maps it to a
// client error.
var ErrInvalidAddress = errors.New("invalid address")

var exchangeRateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Reader computes market and account snapshots from live contract calls.
// Every remote call yields an absent field on failure; only malformed
// account input surfaces as an error.
type Reader struct {
	caller      lending.ContractCaller
	markets     []common.Address
	comptroller *common.Address
	oracle      *common.Address
	logger      *zap.Logger
}

// NewReader builds a Reader. Comptroller and oracle are optional; their
// derived fields stay absent when unset.
func NewReader(caller lending.ContractCaller, markets []common.Address, comptroller, oracle *common.Address, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		caller:      caller,
		markets:     markets,
		comptroller: comptroller,
		oracle:      oracle,
		logger:      logger,
	}
}

// marketCore holds the per-market reads shared by ListMarkets and
// GetAccount. Nil fields were unavailable.
type marketCore struct {
	underlying       *common.Address
	symbol           *string
	decimals         *uint8
	exchangeRate     *big.Int
	price            *big.Int
	collateralFactor *big.Int
	isListed         *bool
}

// ListMarkets returns one snapshot per configured market. Individual call
// failures leave fields absent; the method itself never fails.
func (r *Reader) ListMarkets(ctx context.Context) []model.MarketSnapshot {
	marketABI, err := lending.MarketABI()
	if err != nil {
		r.logger.Error("market abi unavailable", zap.Error(err))
		return nil
	}

	snapshots := make([]model.MarketSnapshot, 0, len(r.markets))
	for _, market := range r.markets {
		core := r.readMarketCore(ctx, marketABI, market)

		snapshot := model.MarketSnapshot{
			Market:           market.Hex(),
			Underlying:       addressString(core.underlying),
			Symbol:           core.symbol,
			Decimals:         core.decimals,
			ExchangeRate:     bigString(core.exchangeRate),
			Price:            bigString(core.price),
			CollateralFactor: bigString(core.collateralFactor),
			IsListed:         core.isListed,
		}

		totalSupply := r.callBig(ctx, market, marketABI, "totalSupply")
		totalBorrows := r.callBig(ctx, market, marketABI, "totalBorrows")
		totalReserves := r.callBig(ctx, market, marketABI, "totalReserves")
		if totalReserves == nil {
			totalReserves = big.NewInt(0)
		}
		cash := r.callBig(ctx, market, marketABI, "getCash")

		snapshot.TotalSupply = bigString(totalSupply)
		snapshot.TotalBorrows = bigString(totalBorrows)
		snapshot.TotalReserves = bigString(totalReserves)
		snapshot.Cash = bigString(cash)
		snapshot.Utilization = utilization(cash, totalBorrows, totalReserves)

		borrowRate, supplyRate := r.annualRates(ctx, market, marketABI, cash, totalBorrows, totalReserves)
		snapshot.BorrowRatePerYear = bigString(borrowRate)
		snapshot.SupplyRatePerYear = bigString(supplyRate)

		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// GetAccount returns the account snapshot across all configured markets.
// It fails only on malformed input.
func (r *Reader) GetAccount(ctx context.Context, address string) (model.AccountSnapshot, error) {
	if !common.IsHexAddress(address) {
		return model.AccountSnapshot{}, ErrInvalidAddress
	}
	account := common.HexToAddress(address)

	marketABI, err := lending.MarketABI()
	if err != nil {
		r.logger.Error("market abi unavailable", zap.Error(err))
		return model.AccountSnapshot{}, err
	}

	snapshot := model.AccountSnapshot{
		Account:   account.Hex(),
		Positions: make([]model.Position, 0, len(r.markets)),
	}

	if liquidity, shortfall, ok := r.accountLiquidity(ctx, account); ok {
		snapshot.Liquidity = bigString(liquidity)
		snapshot.Shortfall = bigString(shortfall)
		healthy := shortfall.Sign() == 0
		snapshot.IsHealthy = &healthy
	}

	for _, market := range r.markets {
		core := r.readMarketCore(ctx, marketABI, market)

		position := model.Position{
			Market:           market.Hex(),
			Underlying:       addressString(core.underlying),
			Symbol:           core.symbol,
			Decimals:         core.decimals,
			ExchangeRate:     bigString(core.exchangeRate),
			Price:            bigString(core.price),
			CollateralFactor: bigString(core.collateralFactor),
			IsListed:         core.isListed,
		}

		balance := r.callBig(ctx, market, marketABI, "balanceOf", account)
		borrowBalance := r.callBig(ctx, market, marketABI, "borrowBalanceStored", account)
		position.SupplyTokens = bigString(balance)
		position.BorrowBalance = bigString(borrowBalance)

		if balance != nil && core.exchangeRate != nil {
			underlyingAmount := new(big.Int).Mul(balance, core.exchangeRate)
			underlyingAmount.Quo(underlyingAmount, exchangeRateScale)
			position.SupplyUnderlying = bigString(underlyingAmount)
		}

		snapshot.Positions = append(snapshot.Positions, position)
	}

	return snapshot, nil
}

// readMarketCore issues the per-market reads shared by both snapshot
// paths. Each read degrades independently.
func (r *Reader) readMarketCore(ctx context.Context, marketABI abi.ABI, market common.Address) marketCore {
	core := marketCore{}

	if values, ok := r.callOpt(ctx, market, marketABI, "underlying"); ok {
		if addr, err := lending.AsAddress(values[0]); err == nil {
			core.underlying = &addr
		}
	}

	if core.underlying != nil {
		core.symbol, core.decimals = r.tokenMeta(ctx, *core.underlying)
		core.price = r.assetPrice(ctx, *core.underlying)
	}

	core.exchangeRate = r.callBig(ctx, market, marketABI, "exchangeRateStored")

	// Collateral factor and listing flag come from a single combined
	// call; a failure leaves both absent.
	if r.comptroller != nil {
		comptrollerABI, err := lending.ComptrollerABI()
		if err == nil {
			if values, ok := r.callOpt(ctx, *r.comptroller, comptrollerABI, "getMarketConfiguration", market); ok && len(values) >= 2 {
				factor, errFactor := lending.AsBigInt(values[0])
				listed, errListed := lending.AsBool(values[1])
				if errFactor == nil && errListed == nil {
					core.collateralFactor = factor
					core.isListed = &listed
				}
			}
		}
	}

	return core
}

// tokenMeta reads symbol and decimals from the underlying ERC20, falling
// back to the bytes32 symbol variant used by older tokens.
func (r *Reader) tokenMeta(ctx context.Context, token common.Address) (*string, *uint8) {
	var symbol *string
	var decimals *uint8

	stringABI, err := lending.ERC20StringABI()
	if err != nil {
		return nil, nil
	}

	if values, ok := r.callOpt(ctx, token, stringABI, "decimals"); ok {
		if d, err := lending.AsUint8(values[0]); err == nil {
			decimals = &d
		}
	}

	if values, ok := r.callOpt(ctx, token, stringABI, "symbol"); ok {
		if s, isString := values[0].(string); isString {
			symbol = &s
		}
	} else if bytes32ABI, err := lending.ERC20Bytes32ABI(); err == nil {
		if values, ok := r.callOpt(ctx, token, bytes32ABI, "symbol"); ok {
			if s, isBytes := lending.Bytes32ToString(values[0]); isBytes {
				symbol = &s
			}
		}
	}

	return symbol, decimals
}

// assetPrice reads the underlying price from the oracle, absent when the
// oracle is unset or the call fails.
func (r *Reader) assetPrice(ctx context.Context, asset common.Address) *big.Int {
	if r.oracle == nil {
		return nil
	}
	oracleABI, err := lending.PriceOracleABI()
	if err != nil {
		return nil
	}
	values, ok := r.callOpt(ctx, *r.oracle, oracleABI, "getAssetPrice", asset)
	if !ok {
		return nil
	}
	price, err := lending.AsBigInt(values[0])
	if err != nil {
		return nil
	}
	return price
}

// accountLiquidity reads liquidity and shortfall in one combined call.
func (r *Reader) accountLiquidity(ctx context.Context, account common.Address) (*big.Int, *big.Int, bool) {
	if r.comptroller == nil {
		return nil, nil, false
	}
	comptrollerABI, err := lending.ComptrollerABI()
	if err != nil {
		return nil, nil, false
	}
	values, ok := r.callOpt(ctx, *r.comptroller, comptrollerABI, "getAccountLiquidity", account)
	if !ok || len(values) < 2 {
		return nil, nil, false
	}
	liquidity, errLiquidity := lending.AsBigInt(values[0])
	shortfall, errShortfall := lending.AsBigInt(values[1])
	if errLiquidity != nil || errShortfall != nil {
		return nil, nil, false
	}
	return liquidity, shortfall, true
}

// callOpt is the uniform call-or-absent policy: any failure yields ok=false.
func (r *Reader) callOpt(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, bool) {
	values, err := lending.Call(ctx, r.caller, contract, parsed, method, args...)
	if err != nil {
		r.logger.Debug("contract call degraded",
			zap.String("contract", contract.Hex()),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, false
	}
	return values, true
}

// callBig performs a call-or-absent read of a single big integer.
func (r *Reader) callBig(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) *big.Int {
	values, ok := r.callOpt(ctx, contract, parsed, method, args...)
	if !ok {
		return nil
	}
	result, err := lending.AsBigInt(values[0])
	if err != nil {
		return nil
	}
	return result
}

// utilization computes totalBorrows / (cash + totalBorrows - totalReserves),
// absent unless both operands are known and the denominator is positive.
func utilization(cash, totalBorrows, totalReserves *big.Int) *float64 {
	if cash == nil || totalBorrows == nil {
		return nil
	}
	denominator := new(big.Int).Add(cash, totalBorrows)
	if totalReserves != nil {
		denominator.Sub(denominator, totalReserves)
	}
	if denominator.Sign() <= 0 {
		return nil
	}

	ratio, _ := new(big.Float).Quo(
		new(big.Float).SetInt(totalBorrows),
		new(big.Float).SetInt(denominator),
	).Float64()
	return &ratio
}

func bigString(value *big.Int) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

func addressString(value *common.Address) *string {
	if value == nil {
		return nil
	}
	s := value.Hex()
	return &s
}
