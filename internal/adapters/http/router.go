package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/ports"
	"github.com/kirillkom/docverify/internal/observability/metrics"
)

const (
	defaultMaxUploadBytes = 32 << 20
	multipartMemory       = 8 << 20
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type RouterOptions struct {
	Service        string
	Logger         *slog.Logger
	Metrics        *metrics.HTTPServerMetrics
	MaxUploadBytes int64

	RateLimitRPS            float64
	RateLimitBurst          int
	BackpressureMaxInFlight int
	BackpressureWait        time.Duration
}

type Router struct {
	extractor ports.DocumentExtractor
	submitter ports.SubmissionService
	history   ports.VerificationReader
	exporter  ports.ResultExporter
	opts      RouterOptions
}

func NewRouter(
	extractor ports.DocumentExtractor,
	submitter ports.SubmissionService,
	history ports.VerificationReader,
	exporter ports.ResultExporter,
	opts RouterOptions,
) *Router {
	if opts.Service == "" {
		opts.Service = "api"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Router{
		extractor: extractor,
		submitter: submitter,
		history:   history,
		exporter:  exporter,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/extract", rt.extractDocument)
	mux.HandleFunc("POST /v1/subjects/{subject_id}/submissions", rt.submitDocuments)
	mux.HandleFunc("GET /v1/subjects/{subject_id}/verifications", rt.listVerifications)
	mux.HandleFunc("GET /v1/subjects/{subject_id}/verifications.xlsx", rt.exportVerifications)
	mux.HandleFunc("GET /v1/verifications/{verification_id}", rt.getVerification)
	if rt.opts.Metrics != nil {
		mux.Handle("GET /metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.BackpressureMaxInFlight, rt.opts.BackpressureWait)
	handler = newRateLimiter(rt.opts.RateLimitRPS, rt.opts.RateLimitBurst).middleware(handler)
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(rt.opts.Service, handler)
	}
	handler = accessLogMiddleware(rt.opts.Logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) extractDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, formFileError("file", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docType, err := domain.ParseDocumentType(r.FormValue("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, formFileError("file", err))
		return
	}
	defer file.Close()

	doc, err := rt.extractor.ExtractUpload(r.Context(), docType, fileHeader.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordExtraction(rt.opts.Service, string(docType), doc.PresentCount())
	}
	writeJSON(w, http.StatusOK, doc)
}

// submissionFields maps multipart field names to document slots: "ec" for the uploaded EC, "original_ec" for the reference copy.
var submissionFields = func() map[string]domain.DocumentRef {
	fields := map[string]domain.DocumentRef{}
	for _, t := range domain.DocumentTypes {
		fields[string(t)] = domain.DocumentRef{Source: domain.SourceUploaded, Type: t}
		fields["original_"+string(t)] = domain.DocumentRef{Source: domain.SourceOriginal, Type: t}
	}
	return fields
}()

func (rt *Router) submitDocuments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, formFileError("documents", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var uploads []ports.Upload
	for name, headers := range r.MultipartForm.File {
		ref, ok := submissionFields[name]
		if !ok {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "submit documents", fmt.Errorf("unknown multipart field %q", name)))
			return
		}
		if len(headers) != 1 {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "submit documents", fmt.Errorf("multipart field %q must carry exactly one file", name)))
			return
		}
		file, err := headers[0].Open()
		if err != nil {
			writeError(w, fmt.Errorf("open multipart file %q: %w", name, err))
			return
		}
		defer file.Close()
		uploads = append(uploads, ports.Upload{
			Source:   ref.Source,
			Type:     ref.Type,
			Filename: headers[0].Filename,
			Body:     file,
		})
	}

	req, err := rt.submitter.Submit(r.Context(), r.PathValue("subject_id"), uploads)
	if rt.opts.Metrics != nil {
		rt.opts.Metrics.RecordSubmission(rt.opts.Service, time.Since(start), err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, req)
}

func (rt *Router) listVerifications(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("subject_id")
	results, err := rt.history.ListResults(r.Context(), subjectID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id": subjectID,
		"results":    results,
	})
}

func (rt *Router) exportVerifications(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("subject_id")
	results, err := rt.history.ListResults(r.Context(), subjectID, queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	payload, err := rt.exporter.Export(r.Context(), results)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "verifications-" + subjectID + ".xlsx",
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (rt *Router) getVerification(w http.ResponseWriter, r *http.Request) {
	result, err := rt.history.GetResult(r.Context(), r.PathValue("verification_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func formFileError(field string, err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	if errors.Is(err, http.ErrMissingFile) {
		return domain.WrapError(domain.ErrInvalidInput, "read multipart", fmt.Errorf("multipart field %q is required", field))
	}
	return domain.WrapError(domain.ErrInvalidInput, "read multipart", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
