package httpserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/vetscan/internal/application/analysis"
	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
	"github.com/bryanwahyu/vetscan/internal/middleware"
)

// multipart overhead allowed on top of the image limit
const formSlack = 1 << 20

type Options struct {
	JWTSecret      string
	JWTIssuer      string
	CORSOrigins    []string
	MaxUploadBytes int64
	// UploadsDir is served under /uploads when non-empty.
	UploadsDir string
	Metrics    *middleware.Metrics
	Checkers   map[string]middleware.HealthChecker
	Log        *slog.Logger
}

type Router struct {
	svc       *appanalysis.Service
	log       *slog.Logger
	maxUpload int64
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	r := &Router{svc: svc, log: log, maxUpload: opts.MaxUploadBytes}
	if r.maxUpload <= 0 {
		r.maxUpload = 10 << 20
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(log))
	mux.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	if opts.UploadsDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir)))
		mux.Get("/uploads/*", func(w http.ResponseWriter, req *http.Request) {
			// no directory listings
			if strings.HasSuffix(req.URL.Path, "/") {
				http.NotFound(w, req)
				return
			}
			files.ServeHTTP(w, req)
		})
	}

	mux.Route("/v1/analyses", func(rt chi.Router) {
		rt.Use(middleware.JWTAuth(opts.JWTSecret, opts.JWTIssuer))
		rt.Post("/", r.wrap(r.handleAnalyze))
		rt.Get("/", r.wrap(r.handleList))
		rt.Get("/{id}", r.wrap(r.handleGet))
		rt.Delete("/{id}", r.wrap(r.handleDelete))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var ie *domain.InferenceError
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.As(err, &ie) && ie.Kind == domain.KindUnavailable:
			writeError(w, http.StatusServiceUnavailable, "inference service unavailable")
		case errors.As(err, &ie):
			writeError(w, http.StatusBadGateway, "inference provider error: "+ie.Message)
		default:
			r.log.Error("request failed", "method", req.Method, "path", req.URL.Path,
				"request_id", chimw.GetReqID(req.Context()), "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

// POST /v1/analyses
// multipart: image (or file), optional animal_id
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.OwnerFromContext(req.Context())

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+formSlack)
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return domain.Invalid("image exceeds %d bytes", r.maxUpload)
		}
		return domain.Invalid("multipart form expected")
	}
	defer func() {
		if req.MultipartForm != nil {
			_ = req.MultipartForm.RemoveAll()
		}
	}()

	animalID := middleware.SanitizeString(req.FormValue("animal_id"))
	if err := middleware.ValidateAnimalID(animalID); err != nil {
		return domain.Invalid("%s", err.Error())
	}

	image, contentType, err := formImage(req)
	if err != nil {
		return err
	}

	res, err := r.svc.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		OwnerID:     owner,
		AnimalID:    animalID,
		Image:       image,
		ContentType: contentType,
	})
	if err != nil {
		return err
	}
	out := newAnalysisResponse(res)
	out.ImageURL = absoluteURL(req, out.ImageURL)
	return writeJSON(w, http.StatusCreated, out)
}

// GET /v1/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.OwnerFromContext(req.Context())
	q := req.URL.Query()
	page := middleware.ParsePage(q.Get("page"), 1)
	size := middleware.ValidateLimit(middleware.ParsePage(q.Get("page_size"), domain.DefaultPageSize))

	list, err := r.svc.List(req.Context(), owner, page, size)
	if err != nil {
		return err
	}
	items := make([]recordResponse, 0, len(list))
	for _, rec := range list {
		items = append(items, r.newRecordResponse(req, rec, false))
	}
	return writeJSON(w, http.StatusOK, listResponse{Success: true, Page: page, PageSize: size, Items: items})
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.OwnerFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if middleware.ValidateRecordID(id) != nil {
		return domain.ErrNotFound
	}

	rec, err := r.svc.Get(req.Context(), owner, domain.RecordID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, struct {
		Success bool           `json:"success"`
		Data    recordResponse `json:"data"`
	}{true, r.newRecordResponse(req, rec, true)})
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.OwnerFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if middleware.ValidateRecordID(id) != nil {
		return domain.ErrNotFound
	}

	if err := r.svc.Delete(req.Context(), owner, domain.RecordID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// formImage reads the "image" part, falling back to "file".
func formImage(req *http.Request) ([]byte, string, error) {
	for _, field := range []string{"image", "file"} {
		f, hdr, err := req.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, "", domain.Invalid("reading %s: %v", field, err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		return data, hdr.Header.Get("Content-Type"), nil
	}
	return nil, "", domain.Invalid("image file is required")
}
