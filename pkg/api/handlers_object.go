package api

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/s3lite/s3lite/pkg/storage"
)

// putObject handles `PUT /{bucket}/{key}`,
// including its CopyObject variant when an X-Amz-Copy-Source header is
// present.
func (s *Server) putObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if src := r.Header.Get("X-Amz-Copy-Source"); src != "" {
		s.copyObject(w, r, src, bucket, key)
		return
	}

	body, err := readBody(r, s.maxRequestBodySize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	declared, err := declaredMD5(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.engine.PutObject(r.Context(), storage.PutObjectInput{
		Bucket:       bucket,
		Key:          key,
		Body:         body,
		DeclaredMD5:  declared,
		UserMetadata: userMetadataFromHeaders(r),
		ContentType:  r.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", quote(out.ETag))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) copyObject(w http.ResponseWriter, r *http.Request, source, dstBucket, dstKey string) {
	srcBucket, srcKey, err := parseCopySource(source)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.engine.CopyObject(r.Context(), srcBucket, srcKey, dstBucket, dstKey)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeXML(w, http.StatusOK, &copyObjectResult{
		LastModified: out.LastModified.UTC().Format(rfc3339),
		ETag:         quote(out.ETag),
	})
}

// parseCopySource parses the `X-Amz-Copy-Source` header, which AWS sends
// URL-encoded as `/bucket/key` (optionally with a leading bucket-only form
// that s3lite does not support, since it has no cross-bucket default
// object).
func parseCopySource(header string) (bucket, key string, err error) {
	decoded, decErr := url.QueryUnescape(strings.TrimPrefix(header, "/"))
	if decErr != nil {
		return "", "", &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed X-Amz-Copy-Source"}
	}
	bucket, key, ok := strings.Cut(decoded, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed X-Amz-Copy-Source"}
	}
	return bucket, key, nil
}

// getObject handles `GET /{bucket}/{key}`.
func (s *Server) getObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.engine.GetObject(r.Context(), storage.GetObjectInput{Bucket: bucket, Key: key, Range: rng})
	if err != nil {
		writeError(w, r, err)
		return
	}

	applyUserMetadataHeaders(w, out.UserMetadata)
	w.Header().Set("ETag", quote(out.ETag))
	w.Header().Set("Last-Modified", out.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(out.Body)), 10))
	w.Header().Set("Accept-Ranges", "bytes")

	if out.ContentRange != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", out.ContentRange.Start, out.ContentRange.End, out.ObjectSize))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_, _ = w.Write(out.Body)
}

// headObject handles `HEAD /{bucket}/{key}`.
func (s *Server) headObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	info, err := s.engine.HeadObject(r.Context(), bucket, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	applyUserMetadataHeaders(w, info.UserMetadata)
	w.Header().Set("ETag", quote(info.ETag))
	w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
}

// deleteObject handles `DELETE /{bucket}/{key}`.
func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if err := s.engine.DeleteObject(r.Context(), bucket, key); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteObjects handles `POST /{bucket}?delete`.
func (s *Server) deleteObjects(w http.ResponseWriter, r *http.Request, bucket string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxRequestBodySize))
	if err != nil {
		writeError(w, r, wrapInternal(err))
		return
	}
	var req deleteRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		writeError(w, r, &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed Delete request body"})
		return
	}

	keys := make([]string, len(req.Objects))
	for i, o := range req.Objects {
		keys[i] = o.Key
	}

	result, err := s.engine.DeleteObjects(r.Context(), bucket, keys)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := deleteResult{Xmlns: xmlns}
	if !req.Quiet {
		for _, k := range result.Deleted {
			resp.Deleted = append(resp.Deleted, deletedEntry{Key: k})
		}
	}
	for k, e := range result.Errors {
		code := storage.CodeOf(e)
		resp.Errors = append(resp.Errors, deleteError{Key: k, Code: code.String(), Message: e.Error()})
	}
	writeXML(w, http.StatusOK, &resp)
}

// listObjectsV2 handles `GET /{bucket}?list-type=2`.
func (s *Server) listObjectsV2(w http.ResponseWriter, r *http.Request, bucket string) {
	maxKeys, err := parseMaxKeys(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	out, err := s.engine.ListObjectsV2(r.Context(), storage.ListObjectsV2Input{
		Bucket:            bucket,
		Prefix:            q.Get("prefix"),
		Delimiter:         q.Get("delimiter"),
		StartAfter:        q.Get("start-after"),
		ContinuationToken: q.Get("continuation-token"),
		MaxKeys:           maxKeys,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	result := listBucketResult{
		Xmlns:                 xmlns,
		Name:                  bucket,
		Prefix:                q.Get("prefix"),
		Delimiter:             q.Get("delimiter"),
		StartAfter:            q.Get("start-after"),
		ContinuationToken:     q.Get("continuation-token"),
		NextContinuationToken: out.NextContinuationToken,
		KeyCount:              len(out.Contents) + len(out.CommonPrefixes),
		MaxKeys:               maxKeys,
		IsTruncated:           out.IsTruncated,
	}
	for _, o := range out.Contents {
		result.Contents = append(result.Contents, xmlObject{
			Key:          o.Key,
			LastModified: o.LastModified.UTC().Format(rfc3339),
			ETag:         quote(o.ETag),
			Size:         o.Size,
			StorageClass: "STANDARD",
		})
	}
	for _, p := range out.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, xmlCommonPrefix{Prefix: p})
	}
	writeXML(w, http.StatusOK, &result)
}

func quote(etag string) string {
	if strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}
