package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lendingScope/internal/api"
	"lendingScope/internal/chain"
	"lendingScope/internal/config"
	"lendingScope/internal/lending"
	"lendingScope/internal/market"
	"lendingScope/internal/storage"
	"lendingScope/internal/storage/memory"
	"lendingScope/internal/storage/postgres"
	"lendingScope/internal/syncer"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	server := api.NewServer(deps.chain, deps.store, deps.reader, logger)

	logger.Info("serve start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("listen", cfg.ListenAddr),
		zap.Int("markets", len(deps.markets)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("store", cfg.StoreBackend),
	)

	syncDone := make(chan error, 1)
	go func() {
		syncDone <- deps.sync.Run(ctx)
	}()

	err = server.Run(ctx, cfg.ListenAddr)
	stop()

	if syncErr := <-syncDone; syncErr != nil && !errors.Is(syncErr, context.Canceled) {
		logger.Warn("sync loop exited", zap.Error(syncErr))
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// deps bundles the wired collaborators so serve and sync share one
// construction path.
type deps struct {
	chain   *chain.Client
	store   storage.Store
	reader  *market.Reader
	sync    *syncer.Syncer
	markets []common.Address
}

func (d *deps) close() {
	if d.store != nil {
		d.store.Close()
	}
	if d.chain != nil {
		d.chain.Close()
	}
}

func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}

	markets, err := lending.ParseAddresses(cfg.Markets)
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("at least one market address is required")
	}

	comptroller, err := lending.ParseOptionalAddress(cfg.Comptroller)
	if err != nil {
		return nil, fmt.Errorf("comptroller: %w", err)
	}
	oracle, err := lending.ParseOptionalAddress(cfg.PriceOracle)
	if err != nil {
		return nil, fmt.Errorf("price oracle: %w", err)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	var store storage.Store
	switch cfg.StoreBackend {
	case config.StoreMemory:
		store = memory.NewStore()
	default:
		pgStore, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			chainClient.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgStore.InitSchema(ctx); err != nil {
			pgStore.Close()
			chainClient.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		store = pgStore
	}

	reader := market.NewReader(chainClient, markets, comptroller, oracle, logger)

	sync, err := syncer.New(syncer.Config{
		Markets:      markets,
		BatchSize:    cfg.BatchSize,
		Lookback:     cfg.Lookback,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, store, logger)
	if err != nil {
		store.Close()
		chainClient.Close()
		return nil, err
	}

	return &deps{
		chain:   chainClient,
		store:   store,
		reader:  reader,
		sync:    sync,
		markets: markets,
	}, nil
}
