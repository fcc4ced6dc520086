package receipt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Encoded is the transport form of a receipt: gzip-compressed COSE bytes,
// base64 encoded for JSON and message bus payloads.
type Encoded string

// Encode compresses and base64-encodes COSE bytes.
func Encode(coseBytes []byte) (Encoded, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(coseBytes); err != nil {
		return "", fmt.Errorf("compress receipt: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress receipt: %w", err)
	}
	return Encoded(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Decode reverses Encode and returns the raw COSE bytes.
func (e Encoded) Decode() ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(string(e))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	coseBytes, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress receipt: %w", err)
	}
	return coseBytes, nil
}
