package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/TRITMAP/internal/config"
	apperrors "github.com/copyleftdev/TRITMAP/internal/errors"
	"github.com/copyleftdev/TRITMAP/internal/logging"
	"github.com/copyleftdev/TRITMAP/internal/mapping"
	"github.com/copyleftdev/TRITMAP/internal/metrics"
	"github.com/copyleftdev/TRITMAP/internal/optimization"
	"github.com/copyleftdev/TRITMAP/internal/optimization/scoring"
	"github.com/copyleftdev/TRITMAP/internal/optimization/strategy"
	"github.com/copyleftdev/TRITMAP/internal/ternary"
)

// maxBodyBytes bounds request bodies; frequency tables for n-grams beyond
// bigrams can be large.
const maxBodyBytes = 8 << 20

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Status is the lifecycle state of an optimization job.
type Status string

// Job states. Completed, failed and cancelled are terminal.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// OptimizationState represents the state of an optimization job.
// All fields are guarded by Server.optimizationsMu.
type OptimizationState struct {
	ID          string
	Algorithm   string
	Status      Status
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	// Total is the frequency total used to normalize scores
	Total      float64
	Optimizer  optimization.Optimizer
	CancelFunc context.CancelFunc
	// Artifact holds the final, or for a cancelled job the partial, result
	Artifact *mapping.Artifact
	Err      error
}

// Server implements the HTTP and JSON-RPC server for the mapping service.
// It manages optimization jobs and provides endpoints to start, monitor, and
// cancel them, and to score a given mapping.
type Server struct {
	cfg     *config.Config
	logger  Logger
	zap     *zap.Logger
	metrics *metrics.Metrics

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map and running
	running         int
	wg              sync.WaitGroup
}

// Option configures a Server
type Option func(*Server)

// WithMetrics reports job and evaluation metrics to m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		zap:           logging.NewZapLogger(logger.WithFields(nil)),
		optimizations: make(map[string]*OptimizationState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes mounts the REST and JSON-RPC endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Post("/score", s.handleScore)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// OptimizeRequest starts an optimization job. Zero fields take the server
// configuration.
type OptimizeRequest struct {
	Frequencies ternary.Frequencies `json:"frequencies"`
	Algorithm   string              `json:"algorithm,omitempty"`
	Restarts    int                 `json:"restarts,omitempty"`
	Iterations  int                 `json:"iterations,omitempty"`
	Workers     int                 `json:"workers,omitempty"`
	Seed        int64               `json:"seed,omitempty"`
	// Initial is the 26 letter starting mapping of a stochastic job
	Initial    string `json:"initial,omitempty"`
	Acceptance string `json:"acceptance,omitempty"`
}

// JobResponse acknowledges a started or cancelled job.
type JobResponse struct {
	OptimizationID string `json:"optimization_id"`
	Status         Status `json:"status"`
}

// SolutionView is the wire form of an arrangement and its score.
type SolutionView struct {
	Mapping    string  `json:"mapping"`
	Score      float64 `json:"score"`
	Normalized float64 `json:"normalized"`
	Compact    string  `json:"compact"`
	Accepted   *int    `json:"accepted,omitempty"`
}

// StatusResponse describes a job.
type StatusResponse struct {
	OptimizationID string        `json:"optimization_id"`
	Algorithm      string        `json:"algorithm"`
	Status         Status        `json:"status"`
	Progress       float64       `json:"progress"`
	StartTime      string        `json:"start_time"`
	LastUpdate     string        `json:"last_update"`
	EndTime        string        `json:"end_time,omitempty"`
	Result         *SolutionView `json:"result,omitempty"`
	CurrentBest    *SolutionView `json:"current_best,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// ScoreRequest scores a fixed mapping.
type ScoreRequest struct {
	Frequencies ternary.Frequencies `json:"frequencies"`
	Mapping     string              `json:"mapping"`
}

// IDRequest names a job.
type IDRequest struct {
	OptimizationID string `json:"optimization_id"`
}

func validateFrequencies(freq ternary.Frequencies) error {
	if len(freq) == 0 {
		return apperrors.Wrap(apperrors.ErrBadRequest, "frequencies are required")
	}
	if err := freq.Validate(); err != nil {
		return optimization.WrapError(optimization.ErrInvalidFrequencies, err.Error())
	}
	if freq.Total() == 0 {
		return optimization.ErrDegenerateFrequencies
	}
	return nil
}

func (s *Server) params(req OptimizeRequest) (strategy.Params, error) {
	p := strategy.ParamsFromConfig(s.cfg)
	if req.Algorithm != "" {
		p.Algorithm = req.Algorithm
	}
	if req.Restarts != 0 {
		p.Restarts = req.Restarts
	}
	if req.Iterations != 0 {
		p.Iterations = req.Iterations
	}
	if req.Workers != 0 {
		p.Workers = req.Workers
	}
	if req.Seed != 0 {
		p.Seed = req.Seed
	}
	if req.Acceptance != "" {
		p.Acceptance = req.Acceptance
	}
	if req.Initial != "" {
		arr, err := ternary.ParseArrangement(req.Initial)
		if err != nil {
			return p, apperrors.Wrap(err, "initial mapping")
		}
		p.Initial = &arr
	}
	if p.Restarts < 0 || p.Iterations < 0 || p.Workers < 0 {
		return p, fmt.Errorf("%w: restarts, iterations and workers must be non-negative", optimization.ErrInvalidConfig)
	}
	p.Algorithm = strategy.Normalize(p.Algorithm)
	return p, nil
}

// startOptimization validates req, registers a job and runs it in the
// background.
func (s *Server) startOptimization(req OptimizeRequest) (*JobResponse, error) {
	if err := validateFrequencies(req.Frequencies); err != nil {
		return nil, err
	}
	p, err := s.params(req)
	if err != nil {
		return nil, err
	}

	// Generate a unique ID for this optimization
	id := uuid.NewString()

	var hooks strategy.Hooks
	if s.metrics != nil {
		hooks.Evaluations = s.metrics.AddEvaluations
	}
	optimizer, err := strategy.New(p, s.zap.With(zap.String("optimization_id", id)), hooks)
	if err != nil {
		return nil, err
	}

	// Copy the table so later mutation by the caller cannot race the job
	freq := make(ternary.Frequencies, len(req.Frequencies))
	for k, v := range req.Frequencies {
		freq[k] = v
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Algorithm:   p.Algorithm,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Total:       float64(freq.Total()),
		Optimizer:   optimizer,
		CancelFunc:  cancel,
	}

	s.optimizationsMu.Lock()
	s.pruneLocked(now)
	if s.running >= s.cfg.Optimization.MaxJobs {
		s.optimizationsMu.Unlock()
		cancel()
		return nil, apperrors.Wrapf(apperrors.ErrTooManyJobs, "limit is %d", s.cfg.Optimization.MaxJobs)
	}
	s.optimizations[id] = state
	s.running++
	s.wg.Add(1)
	s.optimizationsMu.Unlock()

	if s.metrics != nil {
		s.metrics.JobsStarted.WithLabelValues(p.Algorithm).Inc()
		s.metrics.JobsRunning.Inc()
	}

	s.logger.Info("Optimization started", map[string]interface{}{
		"optimization_id": id,
		"algorithm":       p.Algorithm,
		"restarts":        p.Restarts,
		"iterations":      p.Iterations,
		"seed":            p.Seed,
	})

	go s.runOptimization(ctx, state, freq)

	return &JobResponse{OptimizationID: id, Status: StatusPending}, nil
}

// runOptimization executes the optimization process in a goroutine
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, freq ternary.Frequencies) {
	defer s.wg.Done()

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.optimizationsMu.Unlock()

	start := time.Now()
	result, err := state.Optimizer.Optimize(ctx, freq)

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	if result != nil && result.BestSolution != nil {
		artifact, aerr := mapping.FromResult(result, state.Total, state.Algorithm)
		if aerr == nil {
			state.Artifact = artifact
		} else if err == nil {
			err = aerr
		}
	}

	switch {
	case state.Status == StatusCancelled:
	case err != nil:
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": state.ID,
			"error":           err.Error(),
		})
		state.Status = StatusFailed
		state.Err = err
	default:
		state.Status = StatusCompleted
	}

	now := time.Now()
	if state.EndTime == nil {
		state.EndTime = &now
	}
	state.LastUpdated = now
	s.running--

	fields := map[string]interface{}{
		"optimization_id": state.ID,
		"status":          string(state.Status),
		"duration_ms":     float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if state.Artifact != nil {
		if compact, cerr := state.Artifact.Compact(); cerr == nil {
			fields["result"] = compact
		}
	}
	s.logger.Info("Optimization finished", fields)

	if s.metrics != nil {
		s.metrics.JobsRunning.Dec()
		s.metrics.JobsFinished.WithLabelValues(state.Algorithm, string(state.Status)).Inc()
		s.metrics.JobDuration.WithLabelValues(state.Algorithm).Observe(time.Since(start).Seconds())
		if state.Status == StatusCompleted && state.Artifact != nil {
			if n, nerr := state.Artifact.Normalized(); nerr == nil {
				s.metrics.BestScore.WithLabelValues(state.Algorithm).Set(n)
			}
		}
	}
}

func solutionView(a *mapping.Artifact) *SolutionView {
	if a == nil {
		return nil
	}
	v := &SolutionView{
		Mapping:  a.Arrangement.Letters(),
		Score:    a.Score,
		Accepted: a.Accepted,
	}
	if n, err := a.Normalized(); err == nil {
		v.Normalized = n
	}
	if c, err := a.Compact(); err == nil {
		v.Compact = c
	}
	return v
}

// optimizationStatus returns the current status and results of a job.
func (s *Server) optimizationStatus(id string) (*StatusResponse, error) {
	if id == "" {
		return nil, apperrors.Wrap(apperrors.ErrBadRequest, "optimization_id is required")
	}

	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "optimization %s", id)
	}

	response := &StatusResponse{
		OptimizationID: state.ID,
		Algorithm:      state.Algorithm,
		Status:         state.Status,
		StartTime:      state.StartTime.Format(time.RFC3339),
		LastUpdate:     state.LastUpdated.Format(time.RFC3339),
		Result:         solutionView(state.Artifact),
	}
	if state.EndTime != nil {
		response.EndTime = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != nil {
		response.Error = state.Err.Error()
	}

	if state.Status == StatusCompleted {
		response.Progress = 1
	} else if pr, ok := state.Optimizer.(optimization.ProgressReporter); ok {
		response.Progress = pr.Progress()
	}

	if !state.Status.Terminal() {
		if best := state.Optimizer.GetBestSolution(); best != nil {
			if a, err := mapping.New(best.Arrangement, best.Score, state.Total); err == nil {
				response.CurrentBest = solutionView(a)
			}
		}
	}

	return response, nil
}

// pruneLocked drops finished jobs that ended before the retention window
// and, beyond that, all but the newest MaxFinishedJobs of them. The caller
// must hold optimizationsMu.
func (s *Server) pruneLocked(now time.Time) {
	retention := s.cfg.Optimization.JobRetention
	limit := s.cfg.Optimization.MaxFinishedJobs

	var finished []*OptimizationState
	for id, state := range s.optimizations {
		if !state.Status.Terminal() || state.EndTime == nil {
			continue
		}
		if retention > 0 && now.Sub(*state.EndTime) > retention {
			delete(s.optimizations, id)
			continue
		}
		finished = append(finished, state)
	}

	if limit <= 0 || len(finished) <= limit {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].EndTime.After(*finished[j].EndTime)
	})
	for _, state := range finished[limit:] {
		delete(s.optimizations, state.ID)
	}
	s.logger.Debug("Pruned finished optimizations", map[string]interface{}{
		"dropped": len(finished) - limit,
	})
}

// cancelOptimization cancels a pending or running job.
func (s *Server) cancelOptimization(id string) (*JobResponse, error) {
	if id == "" {
		return nil, apperrors.Wrap(apperrors.ErrBadRequest, "optimization_id is required")
	}

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "optimization %s", id)
	}

	if state.Status.Terminal() {
		return nil, apperrors.Errorf("cannot cancel optimization with status: %s", state.Status).
			WithStatus(http.StatusConflict)
	}

	// Cancel the optimization
	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})

	return &JobResponse{OptimizationID: id, Status: StatusCancelled}, nil
}

// scoreMapping evaluates a fixed mapping against a frequency table.
func (s *Server) scoreMapping(req ScoreRequest) (*SolutionView, error) {
	if err := validateFrequencies(req.Frequencies); err != nil {
		return nil, err
	}
	arr, err := ternary.ParseArrangement(req.Mapping)
	if err != nil {
		return nil, apperrors.Wrap(err, "mapping")
	}
	scorer, err := scoring.NewScorer(req.Frequencies)
	if err != nil {
		return nil, err
	}
	artifact, err := mapping.New(arr, scorer.Score(&arr), scorer.Total())
	if err != nil {
		return nil, err
	}
	return solutionView(artifact), nil
}

// Close cancels all jobs and waits for their goroutines to return.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	s.optimizationsMu.Unlock()

	s.wg.Wait()
	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrapf(apperrors.ErrBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleOptimize handles POST /api/v1/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	result, err := s.startOptimization(req)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.optimizationStatus(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /api/v1/optimization/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	result, err := s.cancelOptimization(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleScore handles POST /api/v1/score
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}

	result, err := s.scoreMapping(req)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
