package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	pollengine "rankit/contexts/ranking/poll-engine"
	"rankit/contexts/ranking/poll-engine/domain/entities"
	domainerrors "rankit/contexts/ranking/poll-engine/domain/errors"
	pollhttp "rankit/contexts/ranking/poll-engine/transport/http"
	"rankit/internal/platform/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "rankit/internal/platform/httpserver/docs"
)

const accountHeader = "X-Account-Id"

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	polls  pollengine.Module
}

func New(polls pollengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		polls:  polls,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.handle("POST /api/v1/polls", s.handleStartPoll)
	s.handle("POST /api/v1/polls/end", s.handleEndPoll)

	s.handle("GET /api/v1/categories", s.handleListCategories)
	s.handle("POST /api/v1/categories", s.handleCreateCategory)
	s.handle("GET /api/v1/categories/{category_id}", s.handleGetCategory)
	s.handle("DELETE /api/v1/categories/{category_id}", s.handleDeleteCategory)
	s.handle("GET /api/v1/categories/{category_id}/statistics", s.handleCategoryStatistics)

	s.handle("GET /api/v1/things", s.handleListThings)
	s.handle("POST /api/v1/things", s.handleCreateThing)
	s.handle("GET /api/v1/things/{thing_id}", s.handleGetThing)
	s.handle("DELETE /api/v1/things/{thing_id}", s.handleDeleteThing)

	s.handle("POST /api/v1/ranks", s.handleCreateRank)
	s.handle("DELETE /api/v1/ranks/{rank_id}", s.handleDeleteRank)
}

// handle registers fn and records its latency under the route pattern.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		defer observability.ObserveRequest(pattern, started)
		fn(w, r)
	})
}

func (s *Server) handleStartPoll(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req pollhttp.StartPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polls.Handler.StartPollHandler(r.Context(), accountID, req)
	if err != nil {
		observability.RecordPollFailure("start", err)
		s.writePollDomainError(w, err)
		return
	}
	observability.PollsStarted.Inc()
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleEndPoll(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req pollhttp.EndPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.polls.Handler.EndPollHandler(r.Context(), accountID, req); err != nil {
		observability.RecordPollFailure("end", err)
		s.writePollDomainError(w, err)
		return
	}
	observability.PollsCompleted.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ListCategoriesHandler(r.Context())
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.polls.Handler.CreateCategoryHandler(r.Context(), req)
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "category_id")
	if !ok {
		return
	}
	resp, err := s.polls.Handler.GetCategoryHandler(r.Context(), categoryID)
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "category_id")
	if !ok {
		return
	}
	if err := s.polls.Handler.DeleteCategoryHandler(r.Context(), categoryID); err != nil {
		s.writePollDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategoryStatistics(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "category_id")
	if !ok {
		return
	}
	resp, err := s.polls.Handler.CategoryStatisticsHandler(r.Context(), categoryID)
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListThings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	thingQuery := entities.ThingQuery{
		Order: entities.ThingOrder(strings.ToLower(strings.TrimSpace(query.Get("order")))),
	}
	if raw := query.Get("desc"); raw != "" {
		desc, err := strconv.ParseBool(raw)
		if err != nil {
			writePollError(w, http.StatusBadRequest, "invalid_desc", "desc must be a boolean")
			return
		}
		thingQuery.Desc = desc
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writePollError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		thingQuery.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			writePollError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		thingQuery.Offset = offset
	}

	resp, err := s.polls.Handler.ListThingsHandler(r.Context(), thingQuery)
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateThing(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.CreateThingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.polls.Handler.CreateThingHandler(r.Context(), req)
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetThing(w http.ResponseWriter, r *http.Request) {
	thingID, ok := pathID(w, r, "thing_id")
	if !ok {
		return
	}
	resp, err := s.polls.Handler.GetThingHandler(r.Context(), thingID)
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteThing(w http.ResponseWriter, r *http.Request) {
	thingID, ok := pathID(w, r, "thing_id")
	if !ok {
		return
	}
	if err := s.polls.Handler.DeleteThingHandler(r.Context(), thingID); err != nil {
		s.writePollDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateRank(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.CreateRankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.polls.Handler.CreateRankHandler(r.Context(), req)
	if err != nil {
		s.writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteRank(w http.ResponseWriter, r *http.Request) {
	rankID, ok := pathID(w, r, "rank_id")
	if !ok {
		return
	}
	if err := s.polls.Handler.DeleteRankHandler(r.Context(), rankID); err != nil {
		s.writePollDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writePollDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrCategoryNotFound):
		writePollError(w, http.StatusNotFound, "category_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrThingNotFound):
		writePollError(w, http.StatusNotFound, "thing_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrRankNotFound):
		writePollError(w, http.StatusNotFound, "rank_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrThingOrCategoryNotFound):
		writePollError(w, http.StatusNotFound, "thing_or_category_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrNotEnoughItems):
		writePollError(w, http.StatusConflict, "not_enough_items", err.Error())
	case errors.Is(err, domainerrors.ErrNotInPollingState):
		writePollError(w, http.StatusConflict, "not_polling", err.Error())
	case errors.Is(err, domainerrors.ErrDuplicateRecord):
		writePollError(w, http.StatusConflict, "duplicate_record", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidPreference):
		writePollError(w, http.StatusBadRequest, "invalid_preference", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidInput):
		writePollError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		s.logger.Error("unhandled poll error",
			"event", "http_poll_internal_error",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writePollError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get(accountHeader))
	if raw == "" {
		writePollError(w, http.StatusUnauthorized, "missing_account", accountHeader+" header is required")
		return 0, false
	}
	accountID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || accountID <= 0 {
		writePollError(w, http.StatusUnauthorized, "invalid_account", accountHeader+" must be a positive integer")
		return 0, false
	}
	return accountID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writePollError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func writePollError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
