package storage

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ohler55/ojg/oj"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
)

// Deflate compresses data with zlib.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a zlib stream.
func Inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// EncodeLap serializes a resampled lap to compressed JSON.
func EncodeLap(lap *model.ResampledLap) ([]byte, error) {
	data, err := oj.Marshal(lap)
	if err != nil {
		return nil, err
	}
	return Deflate(data)
}

// DecodeLap restores a resampled lap written by EncodeLap.
func DecodeLap(blob []byte) (*model.ResampledLap, error) {
	data, err := Inflate(blob)
	if err != nil {
		return nil, err
	}
	var lap model.ResampledLap
	if err := oj.Unmarshal(data, &lap); err != nil {
		return nil, err
	}
	return &lap, nil
}
