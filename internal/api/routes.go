package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"slipclip/internal/clipstore"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// NewRouter wires the routes and middleware.
func NewRouter(cfg ServerConfig) *chi.Mux {
	cfg = cfg.withDefaults()
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Route("/clips", func(r chi.Router) {
		r.Get("/", listClipsHandler(cfg))
		r.Get("/count", countClipsHandler(cfg))
	})
	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:        "ok",
			Backend:       cfg.Backend,
			UptimeSeconds: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func countClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_FILTER")
			return
		}
		n, err := cfg.Store.Count(r.Context(), filter)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, CountResponse{Count: n})
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := filterFromQuery(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_FILTER")
			return
		}
		limit, err := limitFromQuery(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_LIMIT")
			return
		}

		resp := ClipsResponse{Clips: []ClipSummary{}}
		for c, err := range cfg.Store.Get(r.Context(), filter, limit) {
			if err != nil {
				writeStoreError(w, err)
				return
			}
			resp.Clips = append(resp.Clips, FromClip(c))
		}
		resp.Count = len(resp.Clips)
		WriteJSON(w, http.StatusOK, resp)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, clipstore.ErrInvalidArgument) {
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_FILTER")
		return
	}
	WriteError(w, http.StatusInternalServerError, "store query failed", "INTERNAL_ERROR")
}

var equalityParams = []struct {
	param string
	field clipstore.Field
	set   bool
}{
	{"character", clipstore.FieldCharacter, true},
	{"game_id", clipstore.FieldGameID, true},
	{"name", clipstore.FieldName, false},
	{"code", clipstore.FieldCode, false},
	{"partition", clipstore.FieldPartition, false},
}

func filterFromQuery(r *http.Request) (clipstore.Filter, error) {
	query := r.URL.Query()
	var filter clipstore.Filter
	for _, p := range equalityParams {
		if !query.Has(p.param) {
			continue
		}
		value := query.Get(p.param)
		if p.set && strings.Contains(value, ",") {
			parts := strings.Split(value, ",")
			values := make([]any, 0, len(parts))
			for _, part := range parts {
				values = append(values, strings.TrimSpace(part))
			}
			filter = append(filter, clipstore.In(p.field, values...))
			continue
		}
		filter = append(filter, clipstore.Eq(p.field, value))
	}
	for _, expr := range query["where"] {
		cond, err := clipstore.ParseCondition(expr)
		if err != nil {
			return nil, err
		}
		filter = append(filter, cond)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return filter, nil
}

func limitFromQuery(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(limit, maxListLimit), nil
}
