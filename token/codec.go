package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Separator joins the three token segments.
const Separator = "."

var (
	segmentEncoder = &jwt.Token{}
	segmentDecoder = jwt.NewParser(jwt.WithStrictDecoding())
)

var errSegmentAlphabet = errors.New("segment contains characters outside the base64url alphabet")

// EncodeSegment encodes b with the URL-safe base64 alphabet and no padding.
func EncodeSegment(b []byte) string {
	return segmentEncoder.EncodeSegment(b)
}

// DecodeSegment reverses [EncodeSegment]. Padding, whitespace and any character outside
// the URL-safe alphabet are rejected, as are lengths that do not restore to whole bytes.
// Errors wrap [ErrDecode].
func DecodeSegment(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		if !isSegmentByte(s[i]) {
			return nil, &VerifyError{Kind: KindDecode, Err: errSegmentAlphabet}
		}
	}

	b, err := segmentDecoder.DecodeSegment(s)
	if err != nil {
		return nil, &VerifyError{Kind: KindDecode, Err: err}
	}
	return b, nil
}

func isSegmentByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}
