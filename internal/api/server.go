package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/LoanDesk/internal/config"
	"github.com/dharsanguruparan/LoanDesk/internal/model"
	pdfutil "github.com/dharsanguruparan/LoanDesk/internal/pdf"
	"github.com/dharsanguruparan/LoanDesk/internal/pipeline"
	"github.com/dharsanguruparan/LoanDesk/internal/s3storage"
)

// Service is the part of the pipeline the HTTP layer needs.
type Service interface {
	Submit(ctx context.Context, text string) pipeline.Envelope
	Fetch(ctx context.Context, id string) (*model.RequestRecord, error)
}

// URLSigner hands out download links for archived decisions.
type URLSigner interface {
	PresignURL(ctx context.Context, requestID string) (string, error)
}

// Server exposes HTTP endpoints for submitting and inspecting applications.
type Server struct {
	cfg     *config.Config
	svc     Service
	archive URLSigner
	server  *http.Server
	once    sync.Once
}

// New constructs a Server. archive may be nil when archiving is disabled.
func New(cfg *config.Config, svc Service, archive URLSigner) *Server {
	return &Server{cfg: cfg, svc: svc, archive: archive}
}

// Handler returns the routed handler wrapped in the middlewares.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/applications", s.handleApplications)
	mux.HandleFunc("/applications/", s.handleApplicationRoute)
	return corsMiddleware(loggingMiddleware(mux))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	text, err := readApplicationText(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.submit(w, r, text)
}

func (s *Server) handleApplicationRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/applications/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	if id == "pdf" && len(parts) == 1 {
		s.handlePDF(w, r)
		return
	}
	if len(parts) == 1 {
		s.handleFetch(w, r, id)
		return
	}
	switch parts[1] {
	case "archive-url":
		s.handleArchiveURL(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer part.Close()
	text, err := pdfutil.ExtractFromReader(part, s.cfg.MaxUploadBytes)
	switch {
	case errors.Is(err, pdfutil.ErrNotPDF):
		respondError(w, http.StatusUnsupportedMediaType, "only PDF files supported")
		return
	case errors.Is(err, pdfutil.ErrNoText):
		respondError(w, http.StatusUnprocessableEntity, "the PDF has no extractable text")
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("pdf %q converted to %d bytes of text", part.FileName(), len(text))
	s.submit(w, r, text)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, text string) {
	env := s.svc.Submit(r.Context(), text)
	respondJSON(w, envelopeStatus(env), env)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	record, err := s.svc.Fetch(r.Context(), id)
	if err != nil {
		s.fetchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleArchiveURL(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.archive == nil {
		respondError(w, http.StatusNotFound, "decision archive is disabled")
		return
	}
	if _, err := s.svc.Fetch(r.Context(), id); err != nil {
		s.fetchError(w, err)
		return
	}
	url, err := s.archive.PresignURL(r.Context(), id)
	if errors.Is(err, s3storage.ErrNotArchived) {
		respondError(w, http.StatusNotFound, "no archived decision for "+id)
		return
	}
	if err != nil {
		log.Printf("presign %s failed: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to generate url")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"request_id": id, "url": url})
}

func (s *Server) fetchError(w http.ResponseWriter, err error) {
	if pipeline.KindOf(err) == pipeline.KindNotFound {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	log.Printf("fetch failed: %v", err)
	respondError(w, http.StatusInternalServerError, "failed to read request")
}

// envelopeStatus maps a submission outcome to an HTTP status. Evaluation
// failures are the applicant's problem to fix (422); store failures are ours.
func envelopeStatus(env pipeline.Envelope) int {
	if env.Status == pipeline.StatusDone {
		return http.StatusOK
	}
	switch pipeline.KindOf(env.Err) {
	case pipeline.KindStore, pipeline.KindDuplicateID:
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

// readApplicationText accepts {"text": "..."} JSON or a raw text body.
func readApplicationText(r *http.Request) (string, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", errors.New("request body too large or unreadable")
	}
	text := string(data)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return "", errors.New("invalid JSON body")
		}
		text = body.Text
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("application text is empty")
	}
	return text, nil
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"status": pipeline.StatusError, "message": message})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
