package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lendingScope/internal/market"
	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type healthResponse struct {
	ChainID        uint64  `json:"chainId"`
	LatestBlock    uint64  `json:"latestBlock"`
	IndexedToBlock *uint64 `json:"indexedToBlock"`
}

type itemsResponse struct {
	Items any `json:"items"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		s.logger.Warn("chain id fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "chain unavailable")
		return
	}

	latest, err := s.chain.LatestBlockNumber(ctx)
	if err != nil {
		s.logger.Warn("latest block fetch failed", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "chain unavailable")
		return
	}

	resp := healthResponse{
		ChainID:     chainID.Uint64(),
		LatestBlock: latest,
	}

	value, ok, err := s.store.GetState(ctx, storage.CheckpointKey)
	if err != nil {
		s.logger.Error("checkpoint read failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if ok {
		indexed, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			resp.IndexedToBlock = &indexed
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.parseFilter(w, r)
	if !ok {
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxLimit {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	events, err := s.store.QueryEvents(r.Context(), filter, limit)
	if err != nil {
		s.logger.Error("event query failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	s.writeJSON(w, http.StatusOK, itemsResponse{Items: events})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	snapshots := s.reader.ListMarkets(r.Context())
	if snapshots == nil {
		snapshots = []model.MarketSnapshot{}
	}
	s.writeJSON(w, http.StatusOK, itemsResponse{Items: snapshots})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	snapshot, err := s.reader.GetAccount(r.Context(), address)
	if err != nil {
		if errors.Is(err, market.ErrInvalidAddress) {
			s.writeError(w, http.StatusBadRequest, "invalid address")
			return
		}
		s.logger.Error("account snapshot failed", zap.String("address", address), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.parseFilter(w, r)
	if !ok {
		return
	}

	stats, err := s.store.EventStats(r.Context(), filter)
	if err != nil {
		s.logger.Error("stats query failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if stats == nil {
		stats = []model.EventStat{}
	}

	s.writeJSON(w, http.StatusOK, itemsResponse{Items: stats})
}

func (s *Server) parseFilter(w http.ResponseWriter, r *http.Request) (storage.EventFilter, bool) {
	query := r.URL.Query()
	filter := storage.EventFilter{
		Contract:  query.Get("contract"),
		EventName: query.Get("event"),
	}

	if raw := query.Get("fromBlock"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "fromBlock must be a block number")
			return storage.EventFilter{}, false
		}
		filter.FromBlock = &parsed
	}
	if raw := query.Get("toBlock"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "toBlock must be a block number")
			return storage.EventFilter{}, false
		}
		filter.ToBlock = &parsed
	}

	return filter, true
}
