package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/s3lite/s3lite/internal/logger"
	apimiddleware "github.com/s3lite/s3lite/pkg/api/middleware"
	"github.com/s3lite/s3lite/pkg/storage"
)

// methodNotAllowed reports a request whose method carries no S3 operation
// for the resource it addressed (there is no dedicated code for this in
// the taxonomy, so it surfaces as InvalidArgument).
func methodNotAllowed(r *http.Request) error {
	return &storage.Error{Code: storage.ErrInvalidArgument, Message: r.Method + " is not supported for this resource"}
}

// routes builds the chi router: the standard middleware stack, SigV4
// authentication against the server's single static credential pair, and a
// single wildcard operation dispatcher (bucket/key addressing is resolved
// per-request rather than through chi's path params, since virtual-hosted
// addressing reads the bucket out of the Host header instead of the path).
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	if s.config.PermissiveCORS {
		r.Use(apimiddleware.PermissiveCORS())
	}

	r.Use(apimiddleware.SigV4Auth(s.verifier, writeAccessDenied))

	r.Get("/", s.listBuckets)
	r.Handle("/*", http.HandlerFunc(s.dispatch))

	return r
}

// dispatch resolves the bucket and key addressed by r and routes it to the
// matching operation, disambiguating same-method requests by the query
// parameters and headers S3 uses for that purpose (?uploads, ?uploadId=,
// ?partNumber=, ?delete, ?list-type=2, X-Amz-Copy-Source).
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	bucket, key := bucketAndKey(r, s.config.DomainName)
	if bucket == "" {
		s.listBuckets(w, r)
		return
	}

	q := r.URL.Query()
	if key == "" {
		s.dispatchBucket(w, r, bucket, q)
		return
	}
	s.dispatchObject(w, r, bucket, key, q)
}

func (s *Server) dispatchBucket(w http.ResponseWriter, r *http.Request, bucket string, q map[string][]string) {
	switch r.Method {
	case http.MethodPut:
		s.createBucket(w, r, bucket)
	case http.MethodDelete:
		s.deleteBucket(w, r, bucket)
	case http.MethodHead:
		s.headBucket(w, r, bucket)
	case http.MethodGet:
		if _, ok := q["uploads"]; ok {
			s.listMultipartUploads(w, r, bucket)
			return
		}
		s.listObjectsV2(w, r, bucket)
	case http.MethodPost:
		if _, ok := q["delete"]; ok {
			s.deleteObjects(w, r, bucket)
			return
		}
		writeError(w, r, methodNotAllowed(r))
	default:
		writeError(w, r, methodNotAllowed(r))
	}
}

func (s *Server) dispatchObject(w http.ResponseWriter, r *http.Request, bucket, key string, q map[string][]string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := q["uploadId"]; ok {
			s.listParts(w, r, bucket, key)
			return
		}
		s.getObject(w, r, bucket, key)
	case http.MethodHead:
		s.headObject(w, r, bucket, key)
	case http.MethodPut:
		if _, ok := q["uploadId"]; ok {
			s.uploadPart(w, r, bucket)
			return
		}
		s.putObject(w, r, bucket, key)
	case http.MethodDelete:
		if _, ok := q["uploadId"]; ok {
			s.abortMultipartUpload(w, r, bucket)
			return
		}
		s.deleteObject(w, r, bucket, key)
	case http.MethodPost:
		if _, ok := q["uploads"]; ok {
			s.createMultipartUpload(w, r, bucket, key)
			return
		}
		if _, ok := q["uploadId"]; ok {
			s.completeMultipartUpload(w, r, bucket, key)
			return
		}
		writeError(w, r, methodNotAllowed(r))
	default:
		writeError(w, r, methodNotAllowed(r))
	}
}

// requestLogger logs request start at DEBUG and completion at INFO,
// matching the level split the rest of the service uses for request
// tracing.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("S3 API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("S3 API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
