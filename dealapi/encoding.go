package dealapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// SignedDecision is a raw COSE_Sign1 message over a CBOR decision record.
type SignedDecision []byte

// SignedDecisionBase64 is the standard base64 form used in JSON responses.
type SignedDecisionBase64 string

// SignedDecisionURLBase64 is URL-safe base64 without padding.
type SignedDecisionURLBase64 string

// SignedDecisionGzip is gzip-compressed COSE bytes in URL-safe base64 without padding,
// short enough to travel in a query string.
type SignedDecisionGzip string

func (s SignedDecision) EncodeBase64() SignedDecisionBase64 {
	return SignedDecisionBase64(base64.StdEncoding.EncodeToString(s))
}

func (s SignedDecision) EncodeURLSafe() SignedDecisionURLBase64 {
	return SignedDecisionURLBase64(base64.RawURLEncoding.EncodeToString(s))
}

// CompressGzip compresses the COSE bytes. The gzip header carries no timestamp,
// so equal input gives equal output.
func (s SignedDecision) CompressGzip() (SignedDecisionGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(s); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return SignedDecisionGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (s SignedDecisionBase64) String() string {
	return string(s)
}

func (s SignedDecisionBase64) Decode() (SignedDecision, error) {
	raw, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return SignedDecision(raw), nil
}

// CompressGzip decodes and re-encodes in the compressed URL form.
func (s SignedDecisionBase64) CompressGzip() (SignedDecisionGzip, error) {
	raw, err := s.Decode()
	if err != nil {
		return "", err
	}
	return raw.CompressGzip()
}

func (s SignedDecisionURLBase64) String() string {
	return string(s)
}

// Decode accepts the unpadded form and restores padding before decoding.
func (s SignedDecisionURLBase64) Decode() (SignedDecision, error) {
	text := string(s)
	if rem := len(text) % 4; rem != 0 {
		text += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.URLEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}
	return SignedDecision(raw), nil
}

func (s SignedDecisionGzip) String() string {
	return string(s)
}

func (s SignedDecisionGzip) Decompress() (SignedDecision, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	return SignedDecision(raw), nil
}

// ParseSignedDecision accepts any of the text encodings: standard base64,
// URL-safe base64 or the gzip form.
func ParseSignedDecision(text string) (SignedDecision, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty signed decision")
	}
	// gzip first: its text can also be valid standard base64.
	if raw, err := SignedDecisionGzip(text).Decompress(); err == nil {
		return raw, nil
	}
	if raw, err := SignedDecisionBase64(text).Decode(); err == nil {
		return raw, nil
	}
	raw, err := SignedDecisionURLBase64(text).Decode()
	if err != nil {
		return nil, fmt.Errorf("unrecognized signed decision encoding: %w", err)
	}
	return raw, nil
}
