package model

import "encoding/json"

// Event is one decoded protocol log, keyed by (TxHash, LogIndex).
type Event struct {
	BlockNumber uint64          `json:"blockNumber"`
	TxHash      string          `json:"txHash"`
	LogIndex    uint64          `json:"logIndex"`
	Contract    string          `json:"contract"`
	EventName   string          `json:"eventName"`
	Args        json.RawMessage `json:"args"`
	Timestamp   uint64          `json:"timestamp"`
}

// EventStat is a per-(contract, event) count.
type EventStat struct {
	Contract  string `json:"contract"`
	EventName string `json:"eventName"`
	Count     uint64 `json:"count"`
}
