// Package httpapi serves the persistence gateway, uploads and page state
// over HTTP, and provides a Gateway client for it.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"blockcanvas/internal/canvas"
	"blockcanvas/internal/domain"
	"blockcanvas/internal/logging"
	"blockcanvas/internal/service"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Backend is the server side of the gateway plus uploads.
type Backend interface {
	domain.Gateway
	GetBlock(ctx context.Context, id int64) (*domain.Block, error)
	UploadContentImage(ctx context.Context, blockID int64, name string, data []byte) (*service.ContentImage, error)
	UploadAttachment(ctx context.Context, blockID int64, name string, data []byte) (*domain.Attachment, error)
}

// Files serves uploaded bytes back by URL.
type Files interface {
	Open(url string) (*os.File, error)
}

type Options struct {
	// FilesPrefix is the URL path uploaded files are served under, e.g. "/files".
	FilesPrefix string
	// FilesBaseURL is the public URL prefix the file store hands out.
	// Defaults to FilesPrefix.
	FilesBaseURL string
	// MaxUploadBytes bounds multipart request bodies.
	MaxUploadBytes int64
	// ViewportHeight is used for page state when the request names none.
	ViewportHeight int
	// OnPageView is called with the page id whenever a client loads a
	// page's blocks or state.
	OnPageView func(pageID int64)
	Logger     *log.Logger
}

// Server routes HTTP requests to a Backend.
type Server struct {
	backend Backend
	files   Files
	opts    Options
	logger  *log.Logger
	router  chi.Router
}

const defaultMaxUpload = 32 << 20

func NewServer(backend Backend, files Files, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = canvas.DefaultViewportHeight
	}
	if opts.FilesBaseURL == "" {
		opts.FilesBaseURL = opts.FilesPrefix
	}
	s := &Server{backend: backend, files: files, opts: opts, logger: logging.Component(opts.Logger, "http")}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/pages/{pageID}", func(r chi.Router) {
		r.Get("/blocks", s.listBlocks)
		r.Post("/blocks", s.createBlock)
		r.Get("/state", s.pageState)
	})

	r.Route("/blocks/{blockID}", func(r chi.Router) {
		r.Get("/", s.getBlock)
		r.Patch("/", s.updateBlock)
		r.Delete("/", s.deleteBlock)

		r.Get("/images", s.listImages)
		r.Put("/images", s.upsertImage)
		r.Delete("/images", s.deleteImage)
		r.Post("/images/upload", s.uploadContentImage)

		r.Post("/attachments", s.createAttachment)
		r.Post("/attachments/upload", s.uploadAttachment)
	})
	r.Delete("/attachments/{attachmentID}", s.deleteAttachment)

	if s.files != nil && s.opts.FilesPrefix != "" {
		r.Get(s.opts.FilesPrefix+"/*", s.serveFile)
	}
	return r
}

// requestLogger tags each request with an id and puts a request-scoped
// logger on its context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		l := s.logger.With("req", id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), l)))
		l.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "dur", time.Since(start))
	})
}

// ─── Params ─────────────────────────────────────────────────

func idParam(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, badRequest("invalid %s %q", name, chi.URLParam(r, name))
	}
	return v, nil
}

func imageURLParam(r *http.Request) (string, error) {
	u := r.URL.Query().Get("url")
	if u == "" {
		return "", badRequest("missing url query parameter")
	}
	return u, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// ─── Blocks ─────────────────────────────────────────────────

func (s *Server) listBlocks(w http.ResponseWriter, r *http.Request) {
	pageID, err := idParam(r, "pageID")
	if err != nil {
		writeError(w, err)
		return
	}
	blocks, err := s.backend.ListBlocksForPage(r.Context(), pageID)
	if err != nil {
		writeError(w, err)
		return
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	s.viewed(pageID)
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) viewed(pageID int64) {
	if s.opts.OnPageView != nil {
		s.opts.OnPageView(pageID)
	}
}

func (s *Server) createBlock(w http.ResponseWriter, r *http.Request) {
	pageID, err := idParam(r, "pageID")
	if err != nil {
		writeError(w, err)
		return
	}
	var rect domain.Rect
	if err := decodeBody(r, &rect); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.backend.CreateBlock(r.Context(), pageID, rect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// pageState returns the blocks in reading order with the initial extent
// for the requested viewport height.
func (s *Server) pageState(w http.ResponseWriter, r *http.Request) {
	pageID, err := idParam(r, "pageID")
	if err != nil {
		writeError(w, err)
		return
	}
	vh := s.opts.ViewportHeight
	if v := r.URL.Query().Get("viewport"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, badRequest("invalid viewport %q", v))
			return
		}
		vh = n
	}
	blocks, err := s.backend.ListBlocksForPage(r.Context(), pageID)
	if err != nil {
		writeError(w, err)
		return
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}
	s.viewed(pageID)
	canvas.SortReadingOrder(blocks)
	writeJSON(w, http.StatusOK, domain.PageState{
		PageID: pageID,
		Blocks: blocks,
		Extent: domain.Extent{Height: canvas.InitialExtent(blocks, vh)},
	})
}

func (s *Server) getBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := s.backend.GetBlock(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	var p domain.BlockPatch
	if err := decodeBody(r, &p); err != nil {
		writeError(w, err)
		return
	}
	b, err := s.backend.UpdateBlock(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.backend.DeleteBlock(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Image dimensions ───────────────────────────────────────

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	dims, err := s.backend.ListImageDimensions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if dims == nil {
		dims = []domain.ImageDimension{}
	}
	writeJSON(w, http.StatusOK, dims)
}

func (s *Server) upsertImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	url, err := imageURLParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var f domain.ImageDimensionFields
	if err := decodeBody(r, &f); err != nil {
		writeError(w, err)
		return
	}
	d, err := s.backend.UpsertImageDimension(r.Context(), id, url, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	url, err := imageURLParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.backend.DeleteImageDimension(r.Context(), id, url); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Attachments and uploads ────────────────────────────────

type attachmentRequest struct {
	Name string                `json:"name"`
	URL  string                `json:"url"`
	Type domain.AttachmentType `json:"type"`
}

func (s *Server) createAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req attachmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.backend.CreateAttachment(r.Context(), id, req.Name, req.URL, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "attachmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := s.backend.DeleteAttachment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) uploadContentImage(w http.ResponseWriter, r *http.Request) {
	id, name, data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	img, err := s.backend.UploadContentImage(r.Context(), id, name, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (s *Server) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	id, name, data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := s.backend.UploadAttachment(r.Context(), id, name, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// readUpload reads the multipart "file" field of an upload request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (int64, string, []byte, error) {
	id, err := idParam(r, "blockID")
	if err != nil {
		return 0, "", nil, err
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		return 0, "", nil, badRequest("missing file: %v", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return 0, "", nil, badRequest("read upload: %v", err)
	}
	return id, header.Filename, data, nil
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.files.Open(strings.TrimSuffix(s.opts.FilesBaseURL, "/") + "/" + chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
