package api

import (
	"encoding/hex"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"

	"github.com/s3lite/s3lite/pkg/storage"
)

// createMultipartUpload handles `POST /{bucket}/{key}?uploads`.
func (s *Server) createMultipartUpload(w http.ResponseWriter, r *http.Request, bucket, key string) {
	uploadID, err := s.engine.CreateMultipartUpload(r.Context(), bucket, key, s.accessKeyFromContext(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeXML(w, http.StatusOK, &initiateMultipartUploadResult{
		Xmlns:    xmlns,
		Bucket:   bucket,
		Key:      key,
		UploadID: hex.EncodeToString(uploadID),
	})
}

// uploadPart handles `PUT /{bucket}/{key}?partNumber=N&uploadId=ID`.
func (s *Server) uploadPart(w http.ResponseWriter, r *http.Request, bucket string) {
	uploadID, err := decodeUploadID(r.URL.Query().Get("uploadId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	partNumber, err := strconv.Atoi(r.URL.Query().Get("partNumber"))
	if err != nil {
		writeError(w, r, &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed partNumber"})
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

	out, err := s.engine.UploadPart(r.Context(), storage.UploadPartInput{
		Bucket:      bucket,
		UploadID:    uploadID,
		PartNumber:  partNumber,
		Body:        body,
		DeclaredMD5: declared,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", quote(out.ETag))
	w.WriteHeader(http.StatusOK)
}

// completeMultipartUpload handles `POST /{bucket}/{key}?uploadId=ID`.
func (s *Server) completeMultipartUpload(w http.ResponseWriter, r *http.Request, bucket, key string) {
	uploadID, err := decodeUploadID(r.URL.Query().Get("uploadId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxRequestBodySize))
	if err != nil {
		writeError(w, r, wrapInternal(err))
		return
	}
	var req completeMultipartUploadRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		writeError(w, r, &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed CompleteMultipartUpload body"})
		return
	}

	parts := make([]storage.CompletedPart, len(req.Parts))
	for i, p := range req.Parts {
		parts[i] = storage.CompletedPart{PartNumber: p.PartNumber, ETag: trimQuotes(p.ETag)}
	}

	out, err := s.engine.CompleteMultipartUpload(r.Context(), bucket, key, uploadID, parts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeXML(w, http.StatusOK, &completeMultipartUploadResult{
		Xmlns:  xmlns,
		Bucket: bucket,
		Key:    key,
		ETag:   quote(out.ETag),
	})
}

// abortMultipartUpload handles `DELETE /{bucket}/{key}?uploadId=ID`.
func (s *Server) abortMultipartUpload(w http.ResponseWriter, r *http.Request, bucket string) {
	uploadID, err := decodeUploadID(r.URL.Query().Get("uploadId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.engine.AbortMultipartUpload(r.Context(), bucket, uploadID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listMultipartUploads handles `GET /{bucket}?uploads`.
func (s *Server) listMultipartUploads(w http.ResponseWriter, r *http.Request, bucket string) {
	uploads, err := s.engine.ListMultipartUploads(r.Context(), bucket)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := listMultipartUploadsResult{Xmlns: xmlns, Bucket: bucket}
	for _, u := range uploads {
		result.Upload = append(result.Upload, xmlUploadSummary{
			Key:       u.Key,
			UploadID:  hex.EncodeToString(u.UploadID),
			Initiated: u.LastModified.UTC().Format(rfc3339),
		})
	}
	writeXML(w, http.StatusOK, &result)
}

// listParts handles `GET /{bucket}/{key}?uploadId=ID`.
func (s *Server) listParts(w http.ResponseWriter, r *http.Request, bucket, key string) {
	uploadID, err := decodeUploadID(r.URL.Query().Get("uploadId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	parts, err := s.engine.ListParts(r.Context(), bucket, uploadID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := listPartsResult{Xmlns: xmlns, Bucket: bucket, Key: key, UploadID: r.URL.Query().Get("uploadId")}
	for _, p := range parts {
		result.Part = append(result.Part, xmlPartEntry{
			PartNumber:   p.PartNumber,
			LastModified: p.LastModified.UTC().Format(rfc3339),
			ETag:         quote(p.ETag),
			Size:         p.Size,
		})
	}
	writeXML(w, http.StatusOK, &result)
}

func decodeUploadID(s string) ([]byte, error) {
	id, err := hex.DecodeString(s)
	if err != nil || len(id) == 0 {
		return nil, &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed uploadId"}
	}
	return id, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
