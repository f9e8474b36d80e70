package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/theirongolddev/ilbudget/internal/adjust"
	"github.com/theirongolddev/ilbudget/internal/pipeline"
)

// Handler returns the API router.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
		r.Get("/funds", s.handleFunds)
		r.Get("/categories", s.handleCategories)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/categories/{name}", s.handleSetCategory)
			r.Put("/funds/{name}", s.handleSetFund)
			r.Put("/global/{scope}", s.handleSetGlobal)
			r.Post("/reset", s.handleReset)
			r.Get("/effective", s.handleEffective)
		})
	})
	return r
}

func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type percentRequest struct {
	Percent *float64 `json:"percent"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "encoding response: " + err.Error()})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSession), errors.Is(err, errUnknownName):
		return http.StatusNotFound
	case errors.Is(err, adjust.ErrOutOfRange), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var (
	errUnknownName = errors.New("not in dataset")
	errBadRequest  = errors.New("bad request")
)

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	// chi matches on RawPath when it is set, leaving params escaped.
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func decodePercent(r *http.Request) (float64, error) {
	var req percentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if req.Percent == nil {
		return 0, fmt.Errorf("%w: percent is required", errBadRequest)
	}
	return *req.Percent, nil
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleFunds(w http.ResponseWriter, r *http.Request) {
	ds, err := s.current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pipeline.FilterByCategory(ds.Agg.Funds, r.URL.Query().Get("category")))
}

func (s *Service) handleCategories(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ds.Agg.Categories(s.reg))
}

func (s *Service) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	sess := s.createSession()
	sess.mu.Lock()
	v := s.view(sess, ds)
	sess.mu.Unlock()
	writeJSON(w, http.StatusCreated, v)
}

// withSession resolves the {id} session and the current dataset, runs fn
// under the session lock and replies with the updated session view.
func (s *Service) withSession(w http.ResponseWriter, r *http.Request, fn func(*session, *Dataset) error) {
	sess, err := s.session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	ds, err := s.current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if fn != nil {
		if err := fn(sess, ds); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, s.view(sess, ds))
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, nil)
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	s.withSession(w, r, func(sess *session, ds *Dataset) error {
		pct, err := decodePercent(r)
		if err != nil {
			return err
		}
		if len(ds.Agg.FundsIn(name)) == 0 {
			return fmt.Errorf("category %q: %w", name, errUnknownName)
		}
		return sess.set.SetCategory(name, pct)
	})
}

func (s *Service) handleSetFund(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	s.withSession(w, r, func(sess *session, ds *Dataset) error {
		pct, err := decodePercent(r)
		if err != nil {
			return err
		}
		if !hasFund(ds, name) {
			return fmt.Errorf("fund %q: %w", name, errUnknownName)
		}
		return sess.set.SetFund(name, pct)
	})
}

func hasFund(ds *Dataset, name string) bool {
	for _, f := range ds.Agg.Funds {
		if f.Fund == name {
			return true
		}
	}
	return false
}

func (s *Service) handleSetGlobal(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session, ds *Dataset) error {
		scope, err := adjust.ParseScope(pathParam(r, "scope"))
		if err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		pct, err := decodePercent(r)
		if err != nil {
			return err
		}
		return sess.set.SetGlobal(scope, pct, ds.Agg.CategoryNames(), s.reg)
	})
}

func (s *Service) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session, _ *Dataset) error {
		sess.set.Reset()
		return nil
	})
}

func (s *Service) handleEffective(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	ds, err := s.current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	sess.mu.Lock()
	eff := sess.set.Resolve(ds.Agg.Funds)
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, eff)
}
