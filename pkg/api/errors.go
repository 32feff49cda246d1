package api

import (
	"encoding/xml"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/s3lite/s3lite/pkg/storage"
)

// writeError renders err as an S3 XML error body with the conventional
// HTTP status for its storage.ErrorCode.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := storage.CodeOf(err)
	body := xmlError{
		Code:      code.String(),
		Message:   err.Error(),
		Resource:  r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	}
	writeXML(w, code.HTTPStatus(), &body)
}

// writeAccessDenied renders a 403 AccessDenied body without relying on a
// *storage.Error, for failures caught before the storage engine is reached
// (signature verification).
func writeAccessDenied(w http.ResponseWriter, r *http.Request, message string) {
	body := xmlError{
		Code:      storage.ErrAccessDenied.String(),
		Message:   message,
		Resource:  r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	}
	writeXML(w, http.StatusForbidden, &body)
}

// writeXML marshals v as the XML response body with the given status.
func writeXML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}
