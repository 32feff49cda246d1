package middleware

import "strings"

// cutAccessKey splits a credential-scope string
// "<accessKey>/<date>/<region>/<service>/aws4_request" into its access key
// and the remaining scope.
func cutAccessKey(credential string) (accessKey, rest string, ok bool) {
	accessKey, rest, ok = strings.Cut(credential, "/")
	return accessKey, rest, ok
}

// accessKeyFromAuthorizationHeader extracts the access key ID from a
// header-form SigV4 Authorization value without re-validating it (that
// already happened in SigV4Auth); returns "" if the header is absent or
// malformed.
func accessKeyFromAuthorizationHeader(header string) string {
	const prefix = "AWS4-HMAC-SHA256 Credential="
	start := strings.Index(header, prefix)
	if start < 0 {
		return ""
	}
	rest := header[start+len(prefix):]
	end := strings.IndexAny(rest, ",/")
	if end < 0 {
		return rest
	}
	return rest[:end]
}
