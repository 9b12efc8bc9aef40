package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
)

type gameCounter interface {
	Counts() usecase.Counts
}

type resultReader interface {
	Tally(ctx context.Context) (entity.Tally, error)
	Recent(ctx context.Context, limit int64) ([]entity.Result, error)
}

type StatsResponse struct {
	Games  usecase.Counts  `json:"games"`
	Tally  *entity.Tally   `json:"tally,omitempty"`
	Recent []entity.Result `json:"recent,omitempty"`
}

type StatsHandler interface {
	StatsHandler(w http.ResponseWriter, r *http.Request)
}

type statsHandler struct {
	logger  *slog.Logger
	games   gameCounter
	results resultReader
}

// NewStatsHandler - results may be nil when no archive is configured.
func NewStatsHandler(logger *slog.Logger, games gameCounter, results resultReader) StatsHandler {
	return &statsHandler{
		logger:  logger.With("component", "stats_handler"),
		games:   games,
		results: results,
	}
}

// StatsHandler - reports live games and, with an archive, the tally and the recent results.
// The optional limit query parameter bounds the recent list.
func (that *statsHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "StatsHandler")

	response := StatsResponse{
		Games: that.games.Counts(),
	}

	if that.results != nil {
		var limit int64
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		tally, err := that.results.Tally(r.Context())
		if err != nil {
			log.Error("failed to get tally", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		response.Tally = &tally

		if response.Recent, err = that.results.Recent(r.Context(), limit); err != nil {
			log.Error("failed to get recent results", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error("failed to write stats", "error", err)
	}
}
