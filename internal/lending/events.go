package lending

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// TrackedEvents is the fixed set of market events the synchronizer ingests.
var TrackedEvents = []string{
	"Mint",
	"Redeem",
	"Borrow",
	"RepayBorrow",
	"LiquidateBorrow",
	"Transfer",
}

// EventTopic returns the topic0 hash for a tracked market event.
func EventTopic(name string) (common.Hash, error) {
	parsed, err := MarketABI()
	if err != nil {
		return common.Hash{}, err
	}
	event, ok := parsed.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown market event: %s", name)
	}
	return event.ID, nil
}

// DecodeEventArgs decodes a log's indexed topics and data payload into a
// JSON object keyed by argument name.
func DecodeEventArgs(name string, log types.Log) (json.RawMessage, error) {
	parsed, err := MarketABI()
	if err != nil {
		return nil, err
	}
	event, ok := parsed.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown market event: %s", name)
	}

	values := make(map[string]interface{})
	if err := parsed.UnpackIntoMap(values, name, log.Data); err != nil {
		return nil, fmt.Errorf("unpack %s data: %w", name, err)
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(indexed) > 0 {
		if len(log.Topics) < len(indexed)+1 {
			return nil, fmt.Errorf("%s: %d topics for %d indexed args", name, len(log.Topics), len(indexed))
		}
		if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:len(indexed)+1]); err != nil {
			return nil, fmt.Errorf("parse %s topics: %w", name, err)
		}
	}

	args := make(map[string]interface{}, len(values))
	for key, value := range values {
		args[key] = normalizeArg(value)
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal %s args: %w", name, err)
	}
	return data, nil
}

// normalizeArg converts ABI-decoded values into JSON-friendly forms:
// big integers as decimal strings, addresses and byte blobs as hex.
func normalizeArg(value interface{}) interface{} {
	switch v := value.(type) {
	case *big.Int:
		return v.String()
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case [32]byte:
		return hexutil.Encode(v[:])
	case []byte:
		return hexutil.Encode(v)
	default:
		return v
	}
}
