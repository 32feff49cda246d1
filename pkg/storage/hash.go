package storage

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// md5Sum returns the raw 16-byte MD5 digest of body.
func md5Sum(body []byte) []byte {
	sum := md5.Sum(body)
	return sum[:]
}

// etagOf returns the lowercase hex MD5 digest used as a single-part ETag.
func etagOf(body []byte) string {
	return hex.EncodeToString(md5Sum(body))
}

// checkDigest compares a caller-declared Content-MD5 against the actual
// digest of body, returning ErrBadDigest on mismatch. A nil/empty declared
// digest is treated as "not supplied" and always passes.
func checkDigest(bucket, key string, declared, body []byte) error {
	if len(declared) == 0 {
		return nil
	}
	actual := md5Sum(body)
	if !bytes.Equal(declared, actual) {
		return newErr(ErrBadDigest, bucket, key,
			"Content-MD5 %s does not match computed digest %s",
			hex.EncodeToString(declared), hex.EncodeToString(actual))
	}
	return nil
}

// multipartETag computes the synthetic ETag S3 assigns to completed
// multipart uploads: hex(md5(concat(part md5 digests))) + "-" + partCount.
//
// partMD5s must be the raw 16-byte digest of each part, in part-number order.
func multipartETag(partMD5s [][]byte) string {
	h := md5.New()
	for _, p := range partMD5s {
		h.Write(p)
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(h.Sum(nil)), len(partMD5s))
}
