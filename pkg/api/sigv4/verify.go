// Package sigv4 verifies AWS Signature Version 4 requests (header-form and
// query-string presigned form) against a single static access/secret key
// pair, recomputing the expected signature with the same signer the AWS SDK
// uses to produce one.
package sigv4

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const dateLayout = "20060102T150405Z"

var (
	// ErrUnauthenticated is returned when a request carries no SigV4
	// credentials at all (no Authorization header, no query signature).
	ErrUnauthenticated = errors.New("sigv4: request is not signed")
	// ErrInvalidSignature covers every other verification failure: a
	// malformed Authorization header or query string, an unknown access
	// key, an expired presigned URL, or a signature mismatch.
	ErrInvalidSignature = errors.New("sigv4: invalid signature")
)

// Verifier checks incoming requests against a single static credential
// pair.
type Verifier struct {
	credentials aws.Credentials
	signer      *v4.Signer
}

// NewVerifier builds a Verifier for the given access/secret key pair.
func NewVerifier(accessKey, secretKey string) *Verifier {
	provider := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
	creds, _ := provider.Retrieve(context.Background())
	return &Verifier{
		credentials: creds,
		signer:      v4.NewSigner(),
	}
}

// Verify checks r against either the Authorization header or, absent one,
// the query-string presigned form. Returns ErrUnauthenticated if neither
// form of credentials is present, ErrInvalidSignature otherwise.
func (v *Verifier) Verify(r *http.Request) error {
	if r.URL.Query().Get("X-Amz-Signature") != "" {
		return v.verifyPresigned(r)
	}
	if r.Header.Get("Authorization") != "" {
		return v.verifyHeader(r)
	}
	return ErrUnauthenticated
}

func (v *Verifier) verifyHeader(r *http.Request) error {
	parsed, err := parseAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if parsed.accessKey != v.credentials.AccessKeyID {
		return fmt.Errorf("%w: unknown access key", ErrInvalidSignature)
	}
	if parsed.service != "s3" {
		return fmt.Errorf("%w: unexpected service %q", ErrInvalidSignature, parsed.service)
	}

	dateHeader := r.Header.Get("X-Amz-Date")
	if dateHeader == "" {
		dateHeader = r.Header.Get("Date")
	}
	signingTime, err := time.Parse(dateLayout, dateHeader)
	if err != nil {
		return fmt.Errorf("%w: bad X-Amz-Date: %s", ErrInvalidSignature, err)
	}

	payloadHash := r.Header.Get("X-Amz-Content-Sha256")
	if payloadHash == "" {
		return fmt.Errorf("%w: missing X-Amz-Content-Sha256", ErrInvalidSignature)
	}

	clone, err := syntheticRequest(r, parsed.signedHeaders)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if err := v.signer.SignHTTP(r.Context(), v.credentials, clone, payloadHash, parsed.service, parsed.region, signingTime); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	recomputed, err := parseAuthorizationHeader(clone.Header.Get("Authorization"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if !constantTimeEqual(recomputed.signature, parsed.signature) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

func (v *Verifier) verifyPresigned(r *http.Request) error {
	q := r.URL.Query()

	if q.Get("X-Amz-Algorithm") != "AWS4-HMAC-SHA256" {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidSignature, q.Get("X-Amz-Algorithm"))
	}

	scope, err := parseCredentialScope(q.Get("X-Amz-Credential"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if scope.accessKey != v.credentials.AccessKeyID {
		return fmt.Errorf("%w: unknown access key", ErrInvalidSignature)
	}
	if scope.service != "s3" {
		return fmt.Errorf("%w: unexpected service %q", ErrInvalidSignature, scope.service)
	}

	signingTime, err := time.Parse(dateLayout, q.Get("X-Amz-Date"))
	if err != nil {
		return fmt.Errorf("%w: bad X-Amz-Date: %s", ErrInvalidSignature, err)
	}
	expiresSeconds, err := strconv.Atoi(q.Get("X-Amz-Expires"))
	if err != nil || expiresSeconds <= 0 {
		return fmt.Errorf("%w: bad X-Amz-Expires", ErrInvalidSignature)
	}
	if time.Now().After(signingTime.Add(time.Duration(expiresSeconds) * time.Second)) {
		return fmt.Errorf("%w: presigned URL expired", ErrInvalidSignature)
	}

	signature := q.Get("X-Amz-Signature")
	signedHeaders := strings.Split(q.Get("X-Amz-SignedHeaders"), ";")

	clone, err := syntheticRequest(r, signedHeaders)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	clone.URL = cloneURL(r.URL)
	unsigned := clone.URL.Query()
	unsigned.Del("X-Amz-Signature")
	clone.URL.RawQuery = unsigned.Encode()

	signedURI, _, err := v.signer.PresignHTTP(r.Context(), v.credentials, clone, "UNSIGNED-PAYLOAD", scope.service, scope.region, signingTime)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	recomputed, err := url.Parse(signedURI)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if !constantTimeEqual(recomputed.Query().Get("X-Amz-Signature"), signature) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

// syntheticRequest clones r down to only the headers named in
// signedHeaders, so SignHTTP/PresignHTTP canonicalize exactly the set the
// original signer chose rather than every header this request happens to
// carry (proxies, Go's transport, and intermediaries routinely add ones
// the client never signed).
func syntheticRequest(r *http.Request, signedHeaders []string) (*http.Request, error) {
	clone := r.Clone(r.Context())
	clone.Header = make(http.Header, len(signedHeaders))
	for _, name := range signedHeaders {
		if strings.EqualFold(name, "host") {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		values := r.Header.Values(canonical)
		if len(values) == 0 {
			return nil, fmt.Errorf("signed header %q absent from request", name)
		}
		for _, value := range values {
			clone.Header.Add(canonical, value)
		}
	}
	return clone, nil
}

func cloneURL(u *url.URL) *url.URL {
	clone := *u
	return &clone
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type credentialScope struct {
	accessKey string
	date      string
	region    string
	service   string
}

// parseCredentialScope parses "<accessKey>/<date>/<region>/<service>/aws4_request".
func parseCredentialScope(raw string) (credentialScope, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 5 || parts[4] != "aws4_request" {
		return credentialScope{}, fmt.Errorf("malformed credential scope %q", raw)
	}
	return credentialScope{accessKey: parts[0], date: parts[1], region: parts[2], service: parts[3]}, nil
}

type authorizationHeader struct {
	credentialScope
	signedHeaders []string
	signature     string
}

// parseAuthorizationHeader parses:
//
//	AWS4-HMAC-SHA256 Credential=<key>/<date>/<region>/<service>/aws4_request, SignedHeaders=<h1;h2;...>, Signature=<hex>
func parseAuthorizationHeader(header string) (authorizationHeader, error) {
	const prefix = "AWS4-HMAC-SHA256 "
	if !strings.HasPrefix(header, prefix) {
		return authorizationHeader{}, fmt.Errorf("unsupported authorization scheme")
	}

	fields := make(map[string]string, 3)
	for _, part := range strings.Split(strings.TrimPrefix(header, prefix), ",") {
		part = strings.TrimSpace(part)
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return authorizationHeader{}, fmt.Errorf("malformed authorization field %q", part)
		}
		fields[key] = value
	}

	credential, ok := fields["Credential"]
	if !ok {
		return authorizationHeader{}, fmt.Errorf("missing Credential field")
	}
	signature, ok := fields["Signature"]
	if !ok {
		return authorizationHeader{}, fmt.Errorf("missing Signature field")
	}
	signedHeaders, ok := fields["SignedHeaders"]
	if !ok {
		return authorizationHeader{}, fmt.Errorf("missing SignedHeaders field")
	}

	scope, err := parseCredentialScope(credential)
	if err != nil {
		return authorizationHeader{}, err
	}

	return authorizationHeader{
		credentialScope: scope,
		signedHeaders:   strings.Split(signedHeaders, ";"),
		signature:       signature,
	}, nil
}
