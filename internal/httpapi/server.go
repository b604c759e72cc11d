package httpapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xinsight/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Analyze(ctx context.Context, image []byte) (types.PredictResult, error)
	Labels() types.LabelsResponse
	Ready() bool
}

// Client-facing messages for rejected uploads.
const (
	MsgOperational  = "Multi-Label X-Insight API operational."
	MsgNoFilePart   = "No file part in the request."
	MsgNoFileChosen = "No file selected."
	MsgFileTooLarge = "File too large."
)

// uploadFields are the multipart field names accepted for the image, in order.
var uploadFields = []string{"file", "image"}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.MessageResponse{Message: MsgOperational})
	})

	r.Get("/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Labels())
	})

	r.Post("/predict", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)

		data, status, msg := readUpload(w, r)
		if status != 0 {
			writeJSONError(w, status, msg)
			if lvl >= LevelInfo {
				logEnd(r, lvl, status, start, nil)
			}
			return
		}
		if lvl >= LevelDebug {
			l := requestLogger(r)
			l.Debug().Int("bytes", len(data)).Msg("predict start")
		}

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if requestTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, requestTimeout)
			defer tcancel()
		}

		res, err := svc.Analyze(ctx, data)
		if err != nil {
			// Client went away; nobody is listening for the error.
			if r.Context().Err() != nil {
				return
			}
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			logEnd(r, lvl, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, res.Body())
		logEnd(r, lvl, http.StatusOK, start, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// readUpload extracts the image bytes from a multipart request. A non-zero
// status means the upload was rejected with msg.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			IncrementUploadRejection("too_large")
			return nil, http.StatusRequestEntityTooLarge, MsgFileTooLarge
		}
		IncrementUploadRejection("no_file_part")
		return nil, http.StatusBadRequest, MsgNoFilePart
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range uploadFields {
		if fhs := r.MultipartForm.File[field]; len(fhs) > 0 {
			if fhs[0].Filename == "" {
				IncrementUploadRejection("no_file_selected")
				return nil, http.StatusBadRequest, MsgNoFileChosen
			}
			data, err := readFileHeader(fhs[0])
			if err != nil {
				return nil, http.StatusBadRequest, err.Error()
			}
			return data, 0, ""
		}
		// A part without a filename is stored as a plain form value.
		if _, ok := r.MultipartForm.Value[field]; ok {
			IncrementUploadRejection("no_file_selected")
			return nil, http.StatusBadRequest, MsgNoFileChosen
		}
	}
	IncrementUploadRejection("no_file_part")
	return nil, http.StatusBadRequest, MsgNoFilePart
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
