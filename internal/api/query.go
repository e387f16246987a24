package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/query"
)

// Query handles POST /api/query.
//
//	@Summary		Run a vault query
//	@Tags			query
//	@Accept			json
//	@Produce		json
//	@Param			body	body		QueryRequest	true	"Query to run"
//	@Success		200		{object}	query.Result
//	@Failure		400		{object}	QueryErrorResponse
//	@Security		BearerAuth
//	@Router			/query [post]
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
		return
	}

	res, err := h.svc.Query(r.Context(), req.Query)
	if err != nil {
		var perr *query.ParseError
		if errors.As(err, &perr) {
			writeJSON(w, http.StatusBadRequest, QueryErrorResponse{
				Error:    perr.Msg,
				Position: perr.Pos,
			})
			return
		}
		slog.Error("query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Tags handles GET /api/tags.
//
//	@Summary		List tags with usage counts
//	@Tags			query
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.TagCounts(r.Context())
	if err != nil {
		slog.Error("tag counts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tags": counts,
	})
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Fuzzy-resolve a partial note name to vault paths
//	@Tags			query
//	@Produce		json
//	@Param			q		query		string	false	"Partial note name (empty lists notes)"
//	@Param			limit	query		int		false	"Max matches"
//	@Success		200		{object}	ResolveResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	matches, err := h.svc.Fuzzy(r.Context(), q, limit)
	if err != nil {
		slog.Error("resolve failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
	})
}
