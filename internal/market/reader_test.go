package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lendingScope/internal/lending"
)

var (
	marketAddr      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	underlyingAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	comptrollerAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
	oracleAddr      = common.HexToAddress("0x4444444444444444444444444444444444444444")
	rateModelAddr   = common.HexToAddress("0x5555555555555555555555555555555555555555")
	accountAddr     = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

// fakeCaller resolves eth_call payloads back to method names via the known
// ABIs and replies from a canned (contract, method) table. Missing entries
// behave like reverts.
type fakeCaller struct {
	t         *testing.T
	responses map[string][]byte
}

func newFakeCaller(t *testing.T) *fakeCaller {
	return &fakeCaller{t: t, responses: make(map[string][]byte)}
}

func (f *fakeCaller) set(contract common.Address, parsed gethabi.ABI, method string, values ...interface{}) {
	f.t.Helper()
	data, err := parsed.Methods[method].Outputs.Pack(values...)
	if err != nil {
		f.t.Fatalf("pack %s outputs: %v", method, err)
	}
	f.responses[contract.Hex()+":"+method] = data
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	name := f.methodFor(msg.Data)
	resp, ok := f.responses[msg.To.Hex()+":"+name]
	if !ok {
		return nil, fmt.Errorf("execution reverted: %s", name)
	}
	return resp, nil
}

func (f *fakeCaller) methodFor(data []byte) string {
	if len(data) < 4 {
		return "?"
	}
	for _, load := range []func() (gethabi.ABI, error){
		lending.MarketABI,
		lending.ComptrollerABI,
		lending.PriceOracleABI,
		lending.RateModelABI,
		lending.ERC20StringABI,
	} {
		parsed, err := load()
		if err != nil {
			continue
		}
		for name, method := range parsed.Methods {
			if string(method.ID) == string(data[:4]) {
				return name
			}
		}
	}
	return fmt.Sprintf("%x", data[:4])
}

func testABIs(t *testing.T) (gethabi.ABI, gethabi.ABI, gethabi.ABI, gethabi.ABI, gethabi.ABI) {
	t.Helper()
	marketABI, err := lending.MarketABI()
	if err != nil {
		t.Fatalf("market abi: %v", err)
	}
	comptrollerABI, err := lending.ComptrollerABI()
	if err != nil {
		t.Fatalf("comptroller abi: %v", err)
	}
	oracleABI, err := lending.PriceOracleABI()
	if err != nil {
		t.Fatalf("oracle abi: %v", err)
	}
	rateABI, err := lending.RateModelABI()
	if err != nil {
		t.Fatalf("rate model abi: %v", err)
	}
	erc20ABI, err := lending.ERC20StringABI()
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}
	return marketABI, comptrollerABI, oracleABI, rateABI, erc20ABI
}

func newTestReader(caller *fakeCaller) *Reader {
	comptroller := comptrollerAddr
	oracle := oracleAddr
	return NewReader(caller, []common.Address{marketAddr}, &comptroller, &oracle, nil)
}

func TestListMarketsFullSnapshot(t *testing.T) {
	marketABI, comptrollerABI, oracleABI, rateABI, erc20ABI := testABIs(t)
	caller := newFakeCaller(t)

	caller.set(marketAddr, marketABI, "underlying", underlyingAddr)
	caller.set(underlyingAddr, erc20ABI, "symbol", "USDC")
	caller.set(underlyingAddr, erc20ABI, "decimals", uint8(6))
	caller.set(marketAddr, marketABI, "totalSupply", big.NewInt(1_000_000))
	caller.set(marketAddr, marketABI, "totalBorrows", big.NewInt(50))
	caller.set(marketAddr, marketABI, "totalReserves", big.NewInt(10))
	caller.set(marketAddr, marketABI, "getCash", big.NewInt(100))
	caller.set(marketAddr, marketABI, "exchangeRateStored", big.NewInt(2_000_000))
	caller.set(marketAddr, marketABI, "interestRateModel", rateModelAddr)
	caller.set(marketAddr, marketABI, "reserveFactorMantissa", big.NewInt(0))
	caller.set(rateModelAddr, rateABI, "getBorrowRatePerYear", big.NewInt(800))
	caller.set(rateModelAddr, rateABI, "getSupplyRatePerYear", big.NewInt(600))
	caller.set(oracleAddr, oracleABI, "getAssetPrice", big.NewInt(99_000_000))
	caller.set(comptrollerAddr, comptrollerABI, "getMarketConfiguration", big.NewInt(750_000_000_000_000_000), true)

	snapshots := newTestReader(caller).ListMarkets(context.Background())
	if len(snapshots) != 1 {
		t.Fatalf("snapshot count = %d, want 1", len(snapshots))
	}
	snap := snapshots[0]

	if snap.Market != marketAddr.Hex() {
		t.Fatalf("market = %s", snap.Market)
	}
	if snap.Underlying == nil || *snap.Underlying != underlyingAddr.Hex() {
		t.Fatalf("underlying = %v", snap.Underlying)
	}
	if snap.Symbol == nil || *snap.Symbol != "USDC" {
		t.Fatalf("symbol = %v", snap.Symbol)
	}
	if snap.Decimals == nil || *snap.Decimals != 6 {
		t.Fatalf("decimals = %v", snap.Decimals)
	}
	if snap.TotalBorrows == nil || *snap.TotalBorrows != "50" {
		t.Fatalf("totalBorrows = %v", snap.TotalBorrows)
	}
	if snap.BorrowRatePerYear == nil || *snap.BorrowRatePerYear != "800" {
		t.Fatalf("borrowRatePerYear = %v", snap.BorrowRatePerYear)
	}
	if snap.SupplyRatePerYear == nil || *snap.SupplyRatePerYear != "600" {
		t.Fatalf("supplyRatePerYear = %v", snap.SupplyRatePerYear)
	}
	if snap.Price == nil || *snap.Price != "99000000" {
		t.Fatalf("price = %v", snap.Price)
	}
	if snap.CollateralFactor == nil || *snap.CollateralFactor != "750000000000000000" {
		t.Fatalf("collateralFactor = %v", snap.CollateralFactor)
	}
	if snap.IsListed == nil || !*snap.IsListed {
		t.Fatalf("isListed = %v", snap.IsListed)
	}

	// utilization = 50 / (100 + 50 - 10)
	if snap.Utilization == nil || math.Abs(*snap.Utilization-50.0/140.0) > 1e-9 {
		t.Fatalf("utilization = %v", snap.Utilization)
	}
}

func TestListMarketsRatePerSecondFallback(t *testing.T) {
	marketABI, _, _, rateABI, _ := testABIs(t)
	caller := newFakeCaller(t)

	caller.set(marketAddr, marketABI, "totalBorrows", big.NewInt(50))
	caller.set(marketAddr, marketABI, "getCash", big.NewInt(100))
	caller.set(marketAddr, marketABI, "interestRateModel", rateModelAddr)
	// No per-year accessors and no SECONDS_PER_YEAR on the model.
	caller.set(rateModelAddr, rateABI, "getBorrowRate", big.NewInt(100))

	snap := newTestReader(caller).ListMarkets(context.Background())[0]

	want := new(big.Int).Mul(big.NewInt(100), big.NewInt(31_536_000)).String()
	if snap.BorrowRatePerYear == nil || *snap.BorrowRatePerYear != want {
		t.Fatalf("borrowRatePerYear = %v, want %s", snap.BorrowRatePerYear, want)
	}
	if snap.SupplyRatePerYear != nil {
		t.Fatalf("supplyRatePerYear = %v, want absent", snap.SupplyRatePerYear)
	}
}

func TestListMarketsRateModelSecondsAccessor(t *testing.T) {
	marketABI, _, _, rateABI, _ := testABIs(t)
	caller := newFakeCaller(t)

	caller.set(marketAddr, marketABI, "totalBorrows", big.NewInt(50))
	caller.set(marketAddr, marketABI, "getCash", big.NewInt(100))
	caller.set(marketAddr, marketABI, "interestRateModel", rateModelAddr)
	caller.set(rateModelAddr, rateABI, "getBorrowRate", big.NewInt(7))
	caller.set(rateModelAddr, rateABI, "SECONDS_PER_YEAR", big.NewInt(1000))

	snap := newTestReader(caller).ListMarkets(context.Background())[0]

	if snap.BorrowRatePerYear == nil || *snap.BorrowRatePerYear != "7000" {
		t.Fatalf("borrowRatePerYear = %v, want 7000", snap.BorrowRatePerYear)
	}
}

func TestListMarketsDegradedFields(t *testing.T) {
	marketABI, _, _, _, _ := testABIs(t)
	caller := newFakeCaller(t)

	// Only totalBorrows resolves; everything else reverts.
	caller.set(marketAddr, marketABI, "totalBorrows", big.NewInt(42))

	snap := newTestReader(caller).ListMarkets(context.Background())[0]

	if snap.TotalBorrows == nil || *snap.TotalBorrows != "42" {
		t.Fatalf("totalBorrows = %v", snap.TotalBorrows)
	}
	if snap.Underlying != nil || snap.Symbol != nil || snap.Decimals != nil {
		t.Fatalf("underlying fields should be absent: %+v", snap)
	}
	if snap.TotalReserves == nil || *snap.TotalReserves != "0" {
		t.Fatalf("totalReserves = %v, want default 0", snap.TotalReserves)
	}
	if snap.Cash != nil || snap.Utilization != nil {
		t.Fatalf("cash-derived fields should be absent: %+v", snap)
	}
	// Combined comptroller call failed: both stay absent.
	if snap.CollateralFactor != nil || snap.IsListed != nil {
		t.Fatalf("comptroller fields should be absent together: %+v", snap)
	}
}

func TestUtilizationGuards(t *testing.T) {
	if got := utilization(nil, big.NewInt(10), big.NewInt(0)); got != nil {
		t.Fatalf("utilization with unknown cash = %v, want nil", got)
	}
	if got := utilization(big.NewInt(10), nil, big.NewInt(0)); got != nil {
		t.Fatalf("utilization with unknown borrows = %v, want nil", got)
	}
	if got := utilization(big.NewInt(0), big.NewInt(0), big.NewInt(0)); got != nil {
		t.Fatalf("utilization with zero denominator = %v, want nil", got)
	}
	if got := utilization(big.NewInt(5), big.NewInt(5), big.NewInt(20)); got != nil {
		t.Fatalf("utilization with negative denominator = %v, want nil", got)
	}

	got := utilization(big.NewInt(100), big.NewInt(100), big.NewInt(0))
	if got == nil || math.Abs(*got-0.5) > 1e-9 {
		t.Fatalf("utilization = %v, want 0.5", got)
	}
}

func TestGetAccountInvalidAddress(t *testing.T) {
	reader := newTestReader(newFakeCaller(t))

	_, err := reader.GetAccount(context.Background(), "not-an-address")
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("err = %v, want ErrInvalidAddress", err)
	}

	_, err = reader.GetAccount(context.Background(), "0x123")
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("short hex err = %v, want ErrInvalidAddress", err)
	}
}

func TestGetAccountHealthAndConversion(t *testing.T) {
	marketABI, comptrollerABI, _, _, _ := testABIs(t)
	caller := newFakeCaller(t)

	caller.set(comptrollerAddr, comptrollerABI, "getAccountLiquidity", big.NewInt(1234), big.NewInt(0))
	caller.set(marketAddr, marketABI, "balanceOf", big.NewInt(4))
	caller.set(marketAddr, marketABI, "borrowBalanceStored", big.NewInt(9))
	// exchangeRate 0.5e18: 4 tokens convert to 2 underlying via floor division.
	caller.set(marketAddr, marketABI, "exchangeRateStored", big.NewInt(500_000_000_000_000_000))

	snapshot, err := newTestReader(caller).GetAccount(context.Background(), accountAddr.Hex())
	if err != nil {
		t.Fatalf("get account: %v", err)
	}

	if snapshot.Account != accountAddr.Hex() {
		t.Fatalf("account = %s", snapshot.Account)
	}
	if snapshot.Liquidity == nil || *snapshot.Liquidity != "1234" {
		t.Fatalf("liquidity = %v", snapshot.Liquidity)
	}
	if snapshot.Shortfall == nil || *snapshot.Shortfall != "0" {
		t.Fatalf("shortfall = %v", snapshot.Shortfall)
	}
	if snapshot.IsHealthy == nil || !*snapshot.IsHealthy {
		t.Fatalf("isHealthy = %v, want true", snapshot.IsHealthy)
	}

	if len(snapshot.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(snapshot.Positions))
	}
	position := snapshot.Positions[0]
	if position.SupplyTokens == nil || *position.SupplyTokens != "4" {
		t.Fatalf("supply tokens = %v", position.SupplyTokens)
	}
	if position.SupplyUnderlying == nil || *position.SupplyUnderlying != "2" {
		t.Fatalf("supply underlying = %v, want 2", position.SupplyUnderlying)
	}
	if position.BorrowBalance == nil || *position.BorrowBalance != "9" {
		t.Fatalf("borrow balance = %v", position.BorrowBalance)
	}
}

func TestGetAccountShortfall(t *testing.T) {
	_, comptrollerABI, _, _, _ := testABIs(t)
	caller := newFakeCaller(t)
	caller.set(comptrollerAddr, comptrollerABI, "getAccountLiquidity", big.NewInt(0), big.NewInt(77))

	snapshot, err := newTestReader(caller).GetAccount(context.Background(), accountAddr.Hex())
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if snapshot.IsHealthy == nil || *snapshot.IsHealthy {
		t.Fatalf("isHealthy = %v, want false", snapshot.IsHealthy)
	}
}

func TestGetAccountShortfallUnknown(t *testing.T) {
	// Comptroller call reverts: health is unknown, not assumed.
	snapshot, err := newTestReader(newFakeCaller(t)).GetAccount(context.Background(), accountAddr.Hex())
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if snapshot.IsHealthy != nil {
		t.Fatalf("isHealthy = %v, want absent", snapshot.IsHealthy)
	}
	if snapshot.Liquidity != nil || snapshot.Shortfall != nil {
		t.Fatalf("liquidity/shortfall should be absent: %+v", snapshot)
	}
	if len(snapshot.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(snapshot.Positions))
	}
	if snapshot.Positions[0].SupplyUnderlying != nil {
		t.Fatalf("supply underlying should be absent without balance and rate")
	}
}
