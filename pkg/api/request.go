package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/s3lite/s3lite/pkg/storage"
)

// bucketAndKey resolves the bucket and object key addressed by r, accepting
// both virtual-hosted-style (`https://<bucket>.<domainName>/<key>`, when
// domainName is configured and the Host header is a subdomain of it) and
// path-style (`https://<host>/<bucket>/<key>`) addressing.
func bucketAndKey(r *http.Request, domainName string) (bucket, key string) {
	if domainName != "" {
		host := stripPort(r.Host)
		suffix := "." + domainName
		if strings.HasSuffix(host, suffix) {
			bucket = strings.TrimSuffix(host, suffix)
			key = strings.TrimPrefix(r.URL.Path, "/")
			return bucket, key
		}
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ = strings.Cut(path, "/")
	return bucket, key
}

func stripPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// readBody buffers r's (possibly AWS-chunk-framed) body up to limit bytes,
// rejecting anything larger with InvalidArgument so a misbehaving client
// cannot force unbounded memory use.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	reader := io.LimitReader(bodyReader(r), limit+1)
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, wrapInternal(err)
	}
	if int64(len(body)) > limit {
		return nil, &storage.Error{Code: storage.ErrInvalidArgument, Message: "request body exceeds configured maximum size"}
	}
	return body, nil
}

// declaredMD5 decodes the Content-MD5 header, if present, into its raw 16
// bytes. Returns nil, nil when the header is absent.
func declaredMD5(r *http.Request) ([]byte, error) {
	header := r.Header.Get("Content-MD5")
	if header == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed Content-MD5 header"}
	}
	return decoded, nil
}

// parseRange parses a single-range `Range: bytes=a-b` header into a
// *storage.ByteRange, or nil if no Range header was sent. Multi-range and
// suffix (`bytes=-N`) forms are rejected with InvalidRange.
func parseRange(r *http.Request) (*storage.ByteRange, error) {
	header := r.Header.Get("Range")
	if header == "" {
		return nil, nil
	}
	if strings.Contains(header, ",") {
		return nil, &storage.Error{Code: storage.ErrInvalidRange, Message: "multi-range requests are not supported"}
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, &storage.Error{Code: storage.ErrInvalidRange, Message: "unsupported range unit"}
	}
	startStr, endStr, _ := strings.Cut(spec, "-")
	if startStr == "" {
		return nil, &storage.Error{Code: storage.ErrInvalidRange, Message: "suffix ranges are not supported"}
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, &storage.Error{Code: storage.ErrInvalidRange, Message: "malformed range start"}
	}
	end := int64(-1)
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, &storage.Error{Code: storage.ErrInvalidRange, Message: "malformed range end"}
		}
	}
	return &storage.ByteRange{Start: start, End: end}, nil
}

// parseMaxKeys parses the `max-keys` query parameter, defaulting to 1000
// and rejecting negative values; clamping to [1,1000] is the storage
// engine's responsibility.
func parseMaxKeys(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("max-keys")
	if raw == "" {
		return 1000, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &storage.Error{Code: storage.ErrInvalidArgument, Message: "malformed max-keys"}
	}
	return n, nil
}

// userMetadataFromHeaders collects every `X-Amz-Meta-*` request header
// into the S3 user-metadata map, lower-casing the suffix the way the AWS
// SDKs normalize it.
func userMetadataFromHeaders(r *http.Request) map[string]string {
	const prefix = "X-Amz-Meta-"
	meta := make(map[string]string)
	for name, values := range r.Header {
		if !strings.HasPrefix(http.CanonicalHeaderKey(name), prefix) || len(values) == 0 {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(http.CanonicalHeaderKey(name), prefix))
		meta[key] = values[0]
	}
	return meta
}

// applyUserMetadataHeaders writes meta back out as `X-Amz-Meta-*` response headers.
func applyUserMetadataHeaders(w http.ResponseWriter, meta map[string]string) {
	for k, v := range meta {
		w.Header().Set("X-Amz-Meta-"+k, v)
	}
}

// wrapInternal wraps a non-domain error (I/O, context cancellation) as an
// InternalError, matching the taxonomy every other storage-engine failure
// path uses.
func wrapInternal(err error) error {
	return &storage.Error{Code: storage.ErrInternal, Message: fmt.Sprintf("request body error: %s", err)}
}
