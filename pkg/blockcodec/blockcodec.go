// Package blockcodec decodes the zlib-compressed integer arrays stored in the
// image-stack blocks of an ITA file.
package blockcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"itastack/internal/models"
)

// Inflate decompresses a zlib stream.
func Inflate(blob []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, &models.FormatError{Op: "inflate", Err: fmt.Errorf("zlib reader: %w", err)}
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &models.FormatError{Op: "inflate", Err: fmt.Errorf("zlib decompress: %w", err)}
	}
	return out, nil
}

// Deflate compresses data into a zlib stream at the default level.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeUint32 inflates blob and reads exactly n little-endian uint32 values.
func DecodeUint32(blob []byte, n int) ([]uint32, error) {
	if n < 0 {
		return nil, &models.FormatError{Op: "decode", Err: fmt.Errorf("negative element count %d", n)}
	}
	raw, err := Inflate(blob)
	if err != nil {
		return nil, err
	}
	if len(raw) != 4*n {
		return nil, &models.FormatError{
			Op:  "decode",
			Err: fmt.Errorf("expected %d bytes for %d values, got %d", 4*n, n, len(raw)),
		}
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[4*i:])
	}
	return out, nil
}

// DecodeGrid decodes a width x height image, rows first.
func DecodeGrid(blob []byte, width, height int) (models.Raster, error) {
	vals, err := DecodeUint32(blob, width*height)
	if err != nil {
		return models.Raster{}, err
	}
	r := models.NewRaster(width, height)
	for i, v := range vals {
		r.Pix[i] = float64(v)
	}
	return r, nil
}

// DecodeInt32Pairs decodes interleaved little-endian (dx, dy) int32 pairs.
func DecodeInt32Pairs(blob []byte) ([]models.Shift, error) {
	raw, err := Inflate(blob)
	if err != nil {
		return nil, err
	}
	if len(raw)%8 != 0 {
		return nil, &models.FormatError{
			Op:  "decode",
			Err: fmt.Errorf("shift record length %d is not a multiple of 8", len(raw)),
		}
	}
	out := make([]models.Shift, len(raw)/8)
	for i := range out {
		out[i] = models.Shift{
			DX: int(int32(binary.LittleEndian.Uint32(raw[8*i:]))),
			DY: int(int32(binary.LittleEndian.Uint32(raw[8*i+4:]))),
		}
	}
	return out, nil
}

// EncodeUint32 is the inverse of DecodeUint32.
func EncodeUint32(vals []uint32) ([]byte, error) {
	raw := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[4*i:], v)
	}
	return Deflate(raw)
}

// EncodeGrid compresses a raster. Pixels are truncated to uint32.
func EncodeGrid(r models.Raster) ([]byte, error) {
	vals := make([]uint32, len(r.Pix))
	for i, v := range r.Pix {
		vals[i] = uint32(v)
	}
	return EncodeUint32(vals)
}

// EncodeInt32Pairs is the inverse of DecodeInt32Pairs.
func EncodeInt32Pairs(shifts []models.Shift) ([]byte, error) {
	raw := make([]byte, 8*len(shifts))
	for i, s := range shifts {
		binary.LittleEndian.PutUint32(raw[8*i:], uint32(int32(s.DX)))
		binary.LittleEndian.PutUint32(raw[8*i+4:], uint32(int32(s.DY)))
	}
	return Deflate(raw)
}
