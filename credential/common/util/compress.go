package util

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
)

// ZlibCompress compresses data into the zlib stream canonical zlib
// produces at its default level. The compressed bytes are part of the
// revocation bitmap wire format, so the framing must not drift across
// implementations.
func ZlibCompress(data []byte) ([]byte, error) {
	return zlibDeflate(data), nil
}

// ZlibDecompress inflates zlib-compressed data.
func ZlibDecompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("corrupt zlib stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("corrupt zlib stream: %w", err)
	}

	return out, nil
}

// GzipCompress compresses data with gzip at the default level.
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)

	_, err := gz.Write(data)
	if err != nil {
		return nil, err
	}

	err = gz.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress inflates gzip-compressed data.
func GzipDecompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("corrupt gzip stream: %w", err)
	}
	defer gz.Close()

	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("corrupt gzip stream: %w", err)
	}

	return out, nil
}

// GzipCompressToBase64URL gzips data and encodes it with unpadded
// base64url, the encoding used by status list bitstrings.
func GzipCompressToBase64URL(data []byte) (string, error) {
	compressed, err := GzipCompress(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(compressed), nil
}

// GzipDecompressFromBase64URL reverses GzipCompressToBase64URL.
func GzipDecompressFromBase64URL(data string) ([]byte, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("malformed base64url data: %w", err)
	}

	return GzipDecompress(compressed)
}
