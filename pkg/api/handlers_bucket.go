package api

import (
	"net/http"

	"github.com/s3lite/s3lite/pkg/storage"
)

// listBuckets handles `GET /`.
func (s *Server) listBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.engine.ListBuckets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	result := listAllMyBucketsResult{
		Xmlns: xmlns,
		Owner: xmlOwner{ID: s.config.AccessKey, DisplayName: s.config.AccessKey},
	}
	for _, b := range buckets {
		result.Buckets.Bucket = append(result.Buckets.Bucket, xmlBucket{
			Name:         b.Name,
			CreationDate: b.CreatedAt.UTC().Format(rfc3339),
		})
	}
	writeXML(w, http.StatusOK, &result)
}

// createBucket handles `PUT /{bucket}`.
func (s *Server) createBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if err := s.engine.CreateBucket(r.Context(), bucket); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/"+bucket)
	w.WriteHeader(http.StatusOK)
}

// deleteBucket handles `DELETE /{bucket}`.
func (s *Server) deleteBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if err := s.engine.DeleteBucket(r.Context(), bucket); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// headBucket handles `HEAD /{bucket}`.
func (s *Server) headBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	exists, err := s.engine.HeadBucket(r.Context(), bucket)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !exists {
		writeError(w, r, &storage.Error{Code: storage.ErrNoSuchBucket, Bucket: bucket, Message: "bucket does not exist"})
		return
	}
	w.WriteHeader(http.StatusOK)
}
