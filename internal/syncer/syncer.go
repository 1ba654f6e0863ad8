package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"lendingScope/internal/lending"
	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

// DefaultLookback bounds the initial backfill when no checkpoint exists.
const DefaultLookback = 2000

// ChainSource is the chain capability the synchronizer consumes.
// *chain.Client satisfies it.
type ChainSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Config holds runtime settings for the synchronizer.
type Config struct {
	Markets      []common.Address
	BatchSize    uint64
	Lookback     uint64
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Syncer keeps the event log and checkpoint consistent with the chain,
// advancing in bounded windows and persisting the checkpoint after each
// one so a crash loses at most the in-flight window.
type Syncer struct {
	cfg    Config
	chain  ChainSource
	store  storage.Store
	logger *zap.Logger
	topics map[string]common.Hash
}

// New builds a Syncer and resolves topic0 hashes for the tracked events.
func New(cfg Config, chainSource ChainSource, store storage.Store, logger *zap.Logger) (*Syncer, error) {
	if chainSource == nil {
		return nil, fmt.Errorf("chain source is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if len(cfg.Markets) == 0 {
		return nil, fmt.Errorf("at least one market address is required")
	}
	if cfg.Lookback == 0 {
		cfg.Lookback = DefaultLookback
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topics := make(map[string]common.Hash, len(lending.TrackedEvents))
	for _, name := range lending.TrackedEvents {
		topic, err := lending.EventTopic(name)
		if err != nil {
			return nil, err
		}
		topics[name] = topic
	}

	return &Syncer{
		cfg:    cfg,
		chain:  chainSource,
		store:  store,
		logger: logger,
		topics: topics,
	}, nil
}

// Run executes sync cycles on a fixed interval until the context is
// cancelled. Cycle failures are logged and retried on the next tick;
// in-flight window work is never interrupted mid-window.
func (s *Syncer) Run(ctx context.Context) error {
	for {
		if err := s.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("sync cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// SyncOnce runs one sync cycle: resolve bounds, then ingest windows of at
// most BatchSize blocks, persisting the checkpoint after each window.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	latest, err := s.chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	lastProcessed, err := s.loadCheckpoint(ctx, latest)
	if err != nil {
		return err
	}

	if lastProcessed >= 0 && uint64(lastProcessed) >= latest {
		s.logger.Debug("nothing to sync", zap.Int64("last_processed", lastProcessed), zap.Uint64("latest", latest))
		return nil
	}

	windows, err := SplitWindows(uint64(lastProcessed+1), latest, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	// Timestamp cache is scoped to this cycle; growth is bounded by the
	// cycle's block range.
	tsCache := make(map[uint64]uint64)

	for _, window := range windows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		inserted, err := s.syncWindow(ctx, window, tsCache)
		if err != nil {
			return fmt.Errorf("window %d-%d: %w", window.From, window.To, err)
		}

		if err := s.store.SetState(ctx, storage.CheckpointKey, strconv.FormatUint(window.To, 10)); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}

		s.logger.Info("window complete",
			zap.Uint64("from", window.From),
			zap.Uint64("to", window.To),
			zap.Int("events", inserted),
		)
	}

	return nil
}

// loadCheckpoint reads the persisted checkpoint, seeding it when absent so
// the initial backfill is bounded by Lookback.
func (s *Syncer) loadCheckpoint(ctx context.Context, latest uint64) (int64, error) {
	value, ok, err := s.store.GetState(ctx, storage.CheckpointKey)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok {
		var start uint64
		if latest > s.cfg.Lookback {
			start = latest - s.cfg.Lookback
		}
		return int64(start) - 1, nil
	}

	lastProcessed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", value, err)
	}
	return lastProcessed, nil
}

// syncWindow ingests all tracked (market, event) pairs for one window.
// A fetch failure for one pair degrades to zero logs for that pair; a
// timestamp-resolution failure is fatal to the window.
func (s *Syncer) syncWindow(ctx context.Context, window Window, tsCache map[uint64]uint64) (int, error) {
	inserted := 0
	for _, market := range s.cfg.Markets {
		for _, eventName := range lending.TrackedEvents {
			logs, err := s.chain.FilterLogs(ctx, window.From, window.To,
				[]common.Address{market}, []common.Hash{s.topics[eventName]})
			if err != nil {
				if ctx.Err() != nil {
					return inserted, ctx.Err()
				}
				s.logger.Warn("log fetch failed",
					zap.String("contract", market.Hex()),
					zap.String("event", eventName),
					zap.Uint64("from", window.From),
					zap.Uint64("to", window.To),
					zap.Error(err),
				)
				continue
			}

			for _, log := range logs {
				if log.Removed {
					continue
				}

				timestamp, err := s.resolveTimestamp(ctx, log.BlockNumber, tsCache)
				if err != nil {
					return inserted, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
				}

				args, err := lending.DecodeEventArgs(eventName, log)
				if err != nil {
					s.logger.Warn("event decode failed",
						zap.String("contract", market.Hex()),
						zap.String("event", eventName),
						zap.String("tx_hash", log.TxHash.Hex()),
						zap.Error(err),
					)
					args = json.RawMessage("{}")
				}

				event := model.Event{
					BlockNumber: log.BlockNumber,
					TxHash:      log.TxHash.Hex(),
					LogIndex:    uint64(log.Index),
					Contract:    market.Hex(),
					EventName:   eventName,
					Args:        args,
					Timestamp:   timestamp,
				}
				if err := s.store.InsertEvent(ctx, event); err != nil {
					return inserted, fmt.Errorf("insert event: %w", err)
				}
				inserted++
			}
		}
	}
	return inserted, nil
}

// resolveTimestamp resolves a block timestamp through the cycle cache.
// Failure after retries must surface; a fabricated timestamp would
// poison the permanent event record.
func (s *Syncer) resolveTimestamp(ctx context.Context, blockNumber uint64, tsCache map[uint64]uint64) (uint64, error) {
	if ts, ok := tsCache[blockNumber]; ok {
		return ts, nil
	}

	var ts uint64
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = s.chain.BlockTimestamp(ctx, blockNumber)
		return err
	})
	if err != nil {
		return 0, err
	}

	tsCache[blockNumber] = ts
	return ts, nil
}
