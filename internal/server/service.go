// Package server exposes the budget model over a small JSON HTTP API.
// The dataset is shared and read-only; every API session owns its own
// adjustment set.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/ilbudget/internal/adjust"
	"github.com/theirongolddev/ilbudget/internal/model"
	"github.com/theirongolddev/ilbudget/internal/pipeline"
	"github.com/theirongolddev/ilbudget/internal/watch"
)

// ErrUnknownSession is returned for a session id that does not exist.
var ErrUnknownSession = errors.New("unknown session")

// Config controls the server runtime behavior.
type Config struct {
	Addr         string
	Load         pipeline.LoadOptions
	EventsBuffer int
	Watcher      *watch.Watcher // optional; reloads the dataset on change
}

// Dataset is one immutable load of the source file.
type Dataset struct {
	Path      string
	SHA256    string
	LoadedAt  time.Time
	FromCache bool
	Report    RowCounts
	Agg       pipeline.Aggregation
}

// RowCounts summarizes how many source rows survived cleaning.
type RowCounts struct {
	TotalRows  int `json:"total_rows"`
	Kept       int `json:"kept"`
	Missing    int `json:"dropped_missing"`
	NonNumeric int `json:"dropped_non_numeric"`
}

type session struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	set       *adjust.Set
}

// Service holds the shared dataset, the API sessions and the event log.
type Service struct {
	cfg    Config
	loader *pipeline.Loader
	reg    *model.Registry
	log    *zap.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	dataset     *Dataset
	reloadCount int64
	lastError   string
	sessions    map[string]*session
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service. Call Reload (or Run) before serving requests.
func New(cfg Config, loader *pipeline.Loader, reg *model.Registry, log *zap.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if reg == nil {
		reg = model.DefaultRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		loader:    loader,
		reg:       reg,
		log:       log,
		startedAt: time.Now(),
		sessions:  make(map[string]*session),
		subs:      make(map[int]chan Event),
	}
}

// Reload loads the dataset and swaps it in whole. On failure the previous
// dataset, if any, stays in place and the error is returned.
func (s *Service) Reload() error {
	res, err := s.loader.Load(s.cfg.Load)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		s.log.Error("dataset load failed", zap.String("path", s.cfg.Load.Path), zap.Error(err))
		return err
	}

	ds := &Dataset{
		Path:      res.Path,
		SHA256:    res.SHA256,
		LoadedAt:  time.Now(),
		FromCache: res.FromCache,
		Report: RowCounts{
			TotalRows:  res.Report.TotalRows,
			Kept:       res.Report.Kept,
			Missing:    res.Report.Missing,
			NonNumeric: res.Report.NonNumeric,
		},
		Agg: pipeline.Aggregate(res.Records),
	}

	s.mu.Lock()
	prev := s.dataset
	s.dataset = ds
	s.reloadCount++
	s.lastError = ""
	s.mu.Unlock()

	if prev == nil || prev.SHA256 != ds.SHA256 {
		s.publish("dataset_loaded", ds)
	}
	s.log.Info("dataset loaded",
		zap.String("path", ds.Path),
		zap.Int("funds", len(ds.Agg.Funds)),
		zap.Bool("from_cache", ds.FromCache),
	)
	return nil
}

// Run loads the dataset, then serves HTTP (and watches the dataset when a
// watcher is configured) until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Reload(); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if s.cfg.Watcher != nil {
		g.Go(func() error {
			return s.cfg.Watcher.Run(gctx, func() {
				_ = s.Reload()
			})
		})
	}
	return g.Wait()
}

func (s *Service) current() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, errors.New("dataset not loaded")
	}
	return s.dataset, nil
}

func (s *Service) createSession() *session {
	sess := &session{
		id:        uuid.New().String(),
		createdAt: time.Now(),
		set:       adjust.New(),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess, nil
}

func (s *Service) deleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	delete(s.sessions, id)
	return nil
}

// SessionView is the JSON form of one session's state.
type SessionView struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	DatasetSHA  string          `json:"dataset_sha256"`
	Totals      model.Totals    `json:"totals"`
	Adjustments adjust.Snapshot `json:"adjustments"`
	Log         []adjust.Entry  `json:"log"`
}

// view registers the dataset's categories with the session and recomputes
// totals. Callers hold sess.mu.
func (s *Service) view(sess *session, ds *Dataset) SessionView {
	cats := ds.Agg.CategoryNames()
	sess.set.Register(cats, s.reg)
	return SessionView{
		ID:          sess.id,
		CreatedAt:   sess.createdAt,
		DatasetSHA:  ds.SHA256,
		Totals:      pipeline.Recompute(ds.Agg.Funds, s.reg, sess.set),
		Adjustments: sess.set.Snapshot(),
		Log:         sess.set.Log(cats),
	}
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	DataPath        string    `json:"data_path"`
	DatasetSHA      string    `json:"dataset_sha256,omitempty"`
	LoadedAt        time.Time `json:"loaded_at"`
	FromCache       bool      `json:"from_cache"`
	Rows            RowCounts `json:"rows"`
	Funds           int       `json:"funds"`
	Categories      int       `json:"categories"`
	GrandTotal      float64   `json:"grand_total_millions"`
	ReloadCount     int64     `json:"reload_count"`
	Sessions        int       `json:"sessions"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		DataPath:        s.cfg.Load.Path,
		ReloadCount:     s.reloadCount,
		Sessions:        len(s.sessions),
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if ds := s.dataset; ds != nil {
		st.DataPath = ds.Path
		st.DatasetSHA = ds.SHA256
		st.LoadedAt = ds.LoadedAt
		st.FromCache = ds.FromCache
		st.Rows = ds.Report
		st.Funds = len(ds.Agg.Funds)
		st.Categories = len(ds.Agg.CategoryNames())
		st.GrandTotal = ds.Agg.GrandTotal
	}
	return st
}
