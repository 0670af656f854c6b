package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/config"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/coordinator"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/logging"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/parser"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/queue"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/ratelimit"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/telemetry"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/uploads"
)

// multipartOverhead leaves room for form boundaries and text fields on top
// of the file itself.
const multipartOverhead = 1 << 20

// Enqueuer hands a submitted job to the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

// Limiter admits or rejects an upload for a caller.
type Limiter interface {
	Allow(ctx context.Context, caller string) (ratelimit.Decision, error)
}

// Deps are the collaborators behind the HTTP surface. Queue and Uploads are
// only used when the pipeline runs asynchronously; Limiter is optional.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Queue       Enqueuer
	Uploads     uploads.Store
	Limiter     Limiter
}

// Server wires HTTP handlers for the analysis API.
type Server struct {
	cfg      config.Config
	deps     Deps
	validate *validator.Validate
}

// New constructs the API server.
func New(cfg config.Config, deps Deps) *Server {
	return &Server{cfg: cfg, deps: deps, validate: validator.New()}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.AccessLog("http"),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Mount("/metrics", telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/status/{job_id}", s.handleStatus)
		r.Post("/follow-up/{job_id}", s.handleFollowUp)
	})
	return r
}

type uploadResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

type followUpRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
}

type followUpResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := zap.S().Named("api")

	if s.deps.Limiter != nil {
		decision, err := s.deps.Limiter.Allow(r.Context(), clientKey(r))
		if err != nil {
			log.Errorw("rate limiter unavailable", "error", err)
			writeError(w, r, http.StatusInternalServerError, "rate limit error")
			return
		}
		if !decision.Allowed {
			telemetry.RateLimitRejects.Inc()
			writeError(w, r, http.StatusTooManyRequests, "rate limited")
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxUploadBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	if err := parser.Supported(header.Filename); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "could not read upload")
		return
	}

	sub := coordinator.Submission{
		Content:  content,
		Filename: header.Filename,
		Guidance: guidance(r),
	}

	var id string
	if s.cfg.PipelineMode == config.PipelineAsync {
		id, err = s.enqueue(r, sub)
	} else {
		id, err = s.deps.Coordinator.StartAnalysis(r.Context(), sub)
	}
	if err != nil {
		log.Errorw("start analysis", "filename", header.Filename, "error", err)
		writeError(w, r, http.StatusInternalServerError, "could not start analysis")
		return
	}

	writeJSON(w, r, http.StatusAccepted, uploadResponse{JobID: id, Message: "Analysis started"})
}

// enqueue stores the upload and queues the job. Handoff failures settle the
// job as FAILED so the returned id never stays PROCESSING forever.
func (s *Server) enqueue(r *http.Request, sub coordinator.Submission) (string, error) {
	ctx := r.Context()
	id, err := s.deps.Coordinator.Submit(ctx, sub)
	if err != nil {
		return "", err
	}
	key := uploads.Key(id, sub.Filename)
	handoff := s.deps.Uploads.Put(ctx, key, sub.Content)
	if handoff == nil {
		handoff = s.deps.Queue.Enqueue(ctx, queue.Task{
			JobID:     id,
			Filename:  sub.Filename,
			Guidance:  sub.Guidance,
			UploadKey: key,
		})
	}
	if handoff != nil {
		if err := s.deps.Coordinator.Fail(ctx, id, fmt.Errorf("queue analysis: %w", handoff)); err != nil {
			zap.S().Named("api").Errorw("settle failed handoff", "job_id", id, "error", err)
		}
		return "", handoff
	}
	return id, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job_id")
	job, err := s.deps.Coordinator.GetStatus(r.Context(), id)
	if err != nil {
		zap.S().Named("api").Errorw("get status", "job_id", id, "error", err)
		writeError(w, r, http.StatusInternalServerError, "could not load job")
		return
	}
	if job.Status == models.StatusNotFound {
		writeJSON(w, r, http.StatusNotFound, job)
		return
	}
	writeJSON(w, r, http.StatusOK, job)
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job_id")
	var req followUpRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "query is required and must be at most 4000 characters")
		return
	}
	answer, err := s.deps.Coordinator.HandleFollowUp(r.Context(), id, req.Query)
	if err != nil {
		zap.S().Named("api").Errorw("follow-up", "job_id", id, "error", err)
		writeError(w, r, http.StatusInternalServerError, "could not answer follow-up")
		return
	}
	writeJSON(w, r, http.StatusOK, followUpResponse{Response: answer})
}

// guidance accepts either form field name used by clients.
func guidance(r *http.Request) string {
	if v := strings.TrimSpace(r.FormValue("prompt")); v != "" {
		return v
	}
	return strings.TrimSpace(r.FormValue("guidance"))
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	render.Status(r, code)
	render.JSON(w, r, payload)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, r, code, errorResponse{Error: msg})
}
