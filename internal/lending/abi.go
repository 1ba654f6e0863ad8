package lending

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const marketABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "minter", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "mintAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "mintTokens", "type": "uint256"}
    ],
    "name": "Mint",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "redeemer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "redeemAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "redeemTokens", "type": "uint256"}
    ],
    "name": "Redeem",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "borrowAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "accountBorrows", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "totalBorrows", "type": "uint256"}
    ],
    "name": "Borrow",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "payer", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "repayAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "accountBorrows", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "totalBorrows", "type": "uint256"}
    ],
    "name": "RepayBorrow",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "liquidator", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "repayAmount", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "marketCollateral", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "seizeTokens", "type": "uint256"}
    ],
    "name": "LiquidateBorrow",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "underlying",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalSupply",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalBorrows",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalReserves",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getCash",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "exchangeRateStored",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "interestRateModel",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "reserveFactorMantissa",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "owner", "type": "address"}],
    "name": "balanceOf",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "account", "type": "address"}],
    "name": "borrowBalanceStored",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const comptrollerABIJSON = `[
  {
    "inputs": [{"internalType": "address", "name": "market", "type": "address"}],
    "name": "getMarketConfiguration",
    "outputs": [
      {"internalType": "uint256", "name": "collateralFactorMantissa", "type": "uint256"},
      {"internalType": "bool", "name": "isListed", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "account", "type": "address"}],
    "name": "getAccountLiquidity",
    "outputs": [
      {"internalType": "uint256", "name": "liquidity", "type": "uint256"},
      {"internalType": "uint256", "name": "shortfall", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const priceOracleABIJSON = `[
  {
    "inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
    "name": "getAssetPrice",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const rateModelABIJSON = `[
  {
    "inputs": [
      {"internalType": "uint256", "name": "cash", "type": "uint256"},
      {"internalType": "uint256", "name": "borrows", "type": "uint256"},
      {"internalType": "uint256", "name": "reserves", "type": "uint256"}
    ],
    "name": "getBorrowRatePerYear",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "cash", "type": "uint256"},
      {"internalType": "uint256", "name": "borrows", "type": "uint256"},
      {"internalType": "uint256", "name": "reserves", "type": "uint256"},
      {"internalType": "uint256", "name": "reserveFactorMantissa", "type": "uint256"}
    ],
    "name": "getSupplyRatePerYear",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "cash", "type": "uint256"},
      {"internalType": "uint256", "name": "borrows", "type": "uint256"},
      {"internalType": "uint256", "name": "reserves", "type": "uint256"}
    ],
    "name": "getBorrowRate",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "cash", "type": "uint256"},
      {"internalType": "uint256", "name": "borrows", "type": "uint256"},
      {"internalType": "uint256", "name": "reserves", "type": "uint256"},
      {"internalType": "uint256", "name": "reserveFactorMantissa", "type": "uint256"}
    ],
    "name": "getSupplyRate",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "SECONDS_PER_YEAR",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	marketABI          abi.ABI
	marketABIOnce      sync.Once
	marketABIErr       error
	comptrollerABI     abi.ABI
	comptrollerABIOnce sync.Once
	comptrollerABIErr  error
	oracleABI          abi.ABI
	oracleABIOnce      sync.Once
	oracleABIErr       error
	rateModelABI       abi.ABI
	rateModelABIOnce   sync.Once
	rateModelABIErr    error
	erc20String        abi.ABI
	erc20StringOnce    sync.Once
	erc20StringErr     error
	erc20Bytes32       abi.ABI
	erc20Bytes32Once   sync.Once
	erc20Bytes32Err    error
)

// MarketABI returns the parsed lending market ABI.
func MarketABI() (abi.ABI, error) {
	marketABIOnce.Do(func() {
		marketABI, marketABIErr = abi.JSON(strings.NewReader(marketABIJSON))
	})
	return marketABI, marketABIErr
}

// ComptrollerABI returns the parsed comptroller ABI.
func ComptrollerABI() (abi.ABI, error) {
	comptrollerABIOnce.Do(func() {
		comptrollerABI, comptrollerABIErr = abi.JSON(strings.NewReader(comptrollerABIJSON))
	})
	return comptrollerABI, comptrollerABIErr
}

// PriceOracleABI returns the parsed price oracle ABI.
func PriceOracleABI() (abi.ABI, error) {
	oracleABIOnce.Do(func() {
		oracleABI, oracleABIErr = abi.JSON(strings.NewReader(priceOracleABIJSON))
	})
	return oracleABI, oracleABIErr
}

// RateModelABI returns the parsed interest-rate model ABI.
func RateModelABI() (abi.ABI, error) {
	rateModelABIOnce.Do(func() {
		rateModelABI, rateModelABIErr = abi.JSON(strings.NewReader(rateModelABIJSON))
	})
	return rateModelABI, rateModelABIErr
}

// ERC20StringABI returns the ERC20 metadata ABI with string symbol/name.
func ERC20StringABI() (abi.ABI, error) {
	erc20StringOnce.Do(func() {
		erc20String, erc20StringErr = abi.JSON(strings.NewReader(erc20ABIStringJSON))
	})
	return erc20String, erc20StringErr
}

// ERC20Bytes32ABI returns the ERC20 metadata ABI variant used by older
// tokens that return symbol/name as bytes32.
func ERC20Bytes32ABI() (abi.ABI, error) {
	erc20Bytes32Once.Do(func() {
		erc20Bytes32, erc20Bytes32Err = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
	})
	return erc20Bytes32, erc20Bytes32Err
}
