// Package server exposes the submission pipeline over HTTP: one
// endpoint to submit a URL or file, one for dataset statistics, and
// one for service metadata.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openevents/submitbot/internal/activity"
	"github.com/openevents/submitbot/internal/dataset"
	"github.com/openevents/submitbot/internal/github"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// statsTagLimit bounds how many tags the stats endpoint returns.
const statsTagLimit = 50

// DatasetLoader is the read side of the dataset.
type DatasetLoader interface {
	Load(ctx context.Context) (*dataset.Snapshot, error)
}

// ContentFetcher turns submission inputs into plain text.
type ContentFetcher interface {
	FromURL(ctx context.Context, url string) (string, error)
	FromFile(content, fileName string) string
}

// Extractor produces a validated record from text.
type Extractor interface {
	Extract(ctx context.Context, content, sourceURL string, existingTags, existingIDs []string) (*activity.Record, error)
}

// Publisher proposes a record as a pull request.
type Publisher interface {
	Publish(ctx context.Context, yamlFragment string, category activity.Category, meta github.Metadata) (*github.PullRequest, error)
}

// Server handles the submission API. Extractor and Publisher may be
// absent when their credentials are missing; the stored reason is then
// surfaced per request instead of crashing at startup.
type Server struct {
	data    DatasetLoader
	fetcher ContentFetcher

	extractor    Extractor
	extractorErr error

	publisher    Publisher
	publisherErr error

	log *slog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithExtractor installs the extraction engine.
func WithExtractor(x Extractor) Option {
	return func(s *Server) { s.extractor = x }
}

// WithExtractorError records why no extractor is available.
func WithExtractorError(err error) Option {
	return func(s *Server) { s.extractorErr = err }
}

// WithPublisher installs the pull-request publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithPublisherError records why no publisher is available.
func WithPublisherError(err error) Option {
	return func(s *Server) { s.publisherErr = err }
}

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New assembles a server around its collaborators.
func New(data DatasetLoader, fetcher ContentFetcher, opts ...Option) *Server {
	s := &Server{
		data:    data,
		fetcher: fetcher,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler with logging and panic
// recovery applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/submit", s.handleSubmit)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return s.recover(s.logRequests(mux))
}

type submitRequest struct {
	URL         string `json:"url"`
	FileContent string `json:"fileContent"`
	FileName    string `json:"fileName"`
	CreatePR    *bool  `json:"createPR"`
	SubmittedBy string `json:"submittedBy"`
}

type prInfo struct {
	URL    string `json:"url"`
	Number int    `json:"number"`
}

type submitResponse struct {
	Success        bool             `json:"success"`
	Data           *activity.Record `json:"data,omitempty"`
	YAML           string           `json:"yaml,omitempty"`
	Warnings       []string         `json:"warnings,omitempty"`
	PR             *prInfo          `json:"pr,omitempty"`
	Error          string           `json:"error,omitempty"`
	NetworkError   bool             `json:"networkError,omitempty"`
	NetworkMessage string           `json:"networkMessage,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if (req.URL == "") == (req.FileContent == "") {
		s.fail(w, http.StatusBadRequest, "exactly one of url or fileContent is required")
		return
	}
	if s.extractor == nil {
		msg := "extraction engine not configured"
		if s.extractorErr != nil {
			msg = s.extractorErr.Error()
		}
		s.fail(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	snap, err := s.data.Load(ctx)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, fmt.Sprintf("internal server error: %v", err))
		return
	}

	content := req.FileContent
	sourceURL := ""
	if req.URL != "" {
		sourceURL = req.URL
		content, err = s.fetcher.FromURL(ctx, req.URL)
		if err != nil {
			s.fail(w, http.StatusBadRequest, fmt.Sprintf("failed to extract from URL: %v", err))
			return
		}
	} else {
		name := req.FileName
		if name == "" {
			name = "unknown"
		}
		content = s.fetcher.FromFile(content, name)
	}

	rec, err := s.extractor.Extract(ctx, content, sourceURL, snap.Tags, snap.IDs)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	rec.Tags = activity.OptimizeTags(rec.Tags)
	if err := activity.Validate(rec); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Sprintf("validation failed: %v", err))
		return
	}

	resp := submitResponse{
		Success:  true,
		Data:     rec,
		YAML:     activity.MarshalFragment(rec),
		Warnings: activity.Warnings(rec),
	}

	if req.CreatePR == nil || *req.CreatePR {
		s.publish(ctx, &resp, req)
	}

	s.write(w, http.StatusOK, resp)
}

// publish runs the PR step and downgrades any failure to a warning:
// extraction success and publish success are independent outcomes.
func (s *Server) publish(ctx context.Context, resp *submitResponse, req submitRequest) {
	var err error
	switch {
	case s.publisher == nil && s.publisherErr != nil:
		err = s.publisherErr
	case s.publisher == nil:
		err = fmt.Errorf("publisher not configured")
	default:
		var pr *github.PullRequest
		pr, err = s.publisher.Publish(ctx, resp.YAML, resp.Data.Category, github.Metadata{
			ActivityTitle: resp.Data.Title,
			SubmittedBy:   req.SubmittedBy,
			SourceURL:     req.URL,
		})
		if err == nil {
			resp.PR = &prInfo{URL: pr.URL, Number: pr.Number}
			return
		}
	}

	s.log.Warn("pull request creation failed", "error", err)
	resp.Warnings = append(resp.Warnings, fmt.Sprintf("PR creation failed: %v", err))
	if github.IsNetwork(err) {
		resp.NetworkError = true
		resp.NetworkMessage = "Network connection to GitHub failed; a proxy or token check may be needed. " +
			"The data was extracted successfully and a PR can be opened manually."
	}
}

type statsResponse struct {
	Success bool  `json:"success"`
	Stats   stats `json:"stats"`
}

type stats struct {
	TotalTags int      `json:"totalTags"`
	TotalIDs  int      `json:"totalIds"`
	Tags      []string `json:"tags"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.data.Load(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	tags := snap.Tags
	if len(tags) > statsTagLimit {
		tags = tags[:statsTagLimit]
	}
	s.write(w, http.StatusOK, statsResponse{
		Success: true,
		Stats: stats{
			TotalTags: len(snap.Tags),
			TotalIDs:  len(snap.IDs),
			Tags:      tags,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]any{
		"name":    "Activity Submission Bot",
		"version": Version,
		"status":  "running",
		"endpoints": map[string]string{
			"health": "GET /api/health",
			"submit": "POST /api/submit",
			"stats":  "GET /api/stats",
		},
	})
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.write(w, status, submitResponse{Success: false, Error: msg})
}

func (s *Server) write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("could not encode response", "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request handled", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// recover turns panics into a 5xx response with the original message
// preserved instead of tearing down the connection.
func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("panic in handler", "path", r.URL.Path, "panic", v)
				s.fail(w, http.StatusInternalServerError, fmt.Sprintf("internal server error: %v", v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
