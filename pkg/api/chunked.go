package api

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// isAWSChunkedBody reports whether r's body uses the AWS chunked transfer
// encoding SDKs apply to signed streaming payloads (distinct from HTTP
// chunked transfer encoding).
func isAWSChunkedBody(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked")
}

// awsChunkedReader strips AWS chunk framing (`<hex-size>;chunk-signature=<sig>\r\n<data>\r\n`,
// terminated by a zero-size chunk) from its underlying reader, yielding
// only the raw payload bytes. Per-chunk signatures are not re-verified;
// the aggregate payload is what the header-level SigV4 signature covers.
type awsChunkedReader struct {
	src   *bufio.Reader
	chunk io.Reader
	done  bool
}

func newAWSChunkedReader(r io.Reader) *awsChunkedReader {
	return &awsChunkedReader{src: bufio.NewReaderSize(r, 64*1024)}
}

func (a *awsChunkedReader) Read(p []byte) (int, error) {
	for {
		if a.done {
			return 0, io.EOF
		}
		if a.chunk != nil {
			n, err := a.chunk.Read(p)
			if n > 0 {
				return n, nil
			}
			if err == io.EOF {
				a.chunk = nil
				var crlf [2]byte
				if _, err := io.ReadFull(a.src, crlf[:]); err != nil {
					return 0, err
				}
				continue
			}
			return 0, err
		}

		line, err := a.src.ReadBytes('\n')
		if err != nil {
			a.done = true
			if err == io.EOF && len(line) == 0 {
				return 0, io.EOF
			}
			return 0, err
		}
		line = bytes.TrimRight(line, "\r\n")

		hexSize := line
		if i := bytes.IndexByte(line, ';'); i >= 0 {
			hexSize = line[:i]
		}
		size, err := strconv.ParseInt(string(bytes.TrimSpace(hexSize)), 16, 64)
		if err != nil {
			a.done = true
			return 0, fmt.Errorf("aws-chunked: invalid chunk size %q: %w", hexSize, err)
		}
		if size == 0 {
			a.done = true
			_, _ = io.Copy(io.Discard, a.src)
			return 0, io.EOF
		}
		a.chunk = io.LimitReader(a.src, size)
	}
}

// bodyReader returns an io.Reader yielding r's raw payload bytes,
// transparently stripping AWS chunk framing when present.
func bodyReader(r *http.Request) io.Reader {
	if isAWSChunkedBody(r) {
		return newAWSChunkedReader(r.Body)
	}
	return r.Body
}
