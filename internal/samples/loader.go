// Package samples reads raw front-end captures into complex sample buffers.
package samples

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/signalsfoundry/gnss-acquisition/core"
)

// Format is the on-disk sample encoding.
type Format string

const (
	FormatInt8      Format = "int8"      // real, signed 8-bit
	FormatInt8IQ    Format = "int8iq"    // interleaved signed 8-bit I/Q
	FormatInt16IQ   Format = "int16iq"   // interleaved little-endian 16-bit I/Q
	FormatFloat32IQ Format = "float32iq" // interleaved little-endian float32 I/Q
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown sample format")

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatInt8, FormatInt8IQ, FormatInt16IQ, FormatFloat32IQ:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// BytesPerSample is the encoded size of one (possibly complex) sample.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatInt8:
		return 1
	case FormatInt8IQ:
		return 2
	case FormatInt16IQ:
		return 4
	case FormatFloat32IQ:
		return 8
	}
	return 0
}

// Read decodes exactly n samples from r. A capture that ends early fails with
// core.ErrInsufficientSamples.
func Read(r io.Reader, f Format, n int) ([]complex128, error) {
	size := f.BytesPerSample()
	if size == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}

	raw := make([]byte, n*size)
	got, err := io.ReadFull(r, raw)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: capture holds %d of %d samples", core.ErrInsufficientSamples, got/size, n)
		}
		return nil, fmt.Errorf("read capture: %w", err)
	}

	if f == FormatInt8 {
		reals := make([]float64, n)
		for i, v := range raw {
			reals[i] = float64(int8(v))
		}
		return core.RealToComplex(reals), nil
	}

	out := make([]complex128, n)
	le := binary.LittleEndian
	for i := range out {
		b := raw[i*size : (i+1)*size]
		switch f {
		case FormatInt8IQ:
			out[i] = complex(float64(int8(b[0])), float64(int8(b[1])))
		case FormatInt16IQ:
			out[i] = complex(float64(int16(le.Uint16(b[0:]))), float64(int16(le.Uint16(b[2:]))))
		case FormatFloat32IQ:
			out[i] = complex(
				float64(math.Float32frombits(le.Uint32(b[0:]))),
				float64(math.Float32frombits(le.Uint32(b[4:]))),
			)
		}
	}
	return out, nil
}

// Load opens path, skips offsetBytes and reads n samples.
func Load(path string, f Format, offsetBytes int64, n int) ([]complex128, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", path, err)
	}
	defer fh.Close()

	if offsetBytes > 0 {
		if _, err := fh.Seek(offsetBytes, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek capture %q: %w", path, err)
		}
	}
	return Read(bufio.NewReader(fh), f, n)
}

// Write encodes samples in format f. Real formats drop the quadrature part.
// Values are clipped to the integer range of the format.
func Write(w io.Writer, f Format, samples []complex128) error {
	size := f.BytesPerSample()
	if size == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	buf := make([]byte, len(samples)*size)
	le := binary.LittleEndian
	for i, s := range samples {
		b := buf[i*size : (i+1)*size]
		switch f {
		case FormatInt8:
			b[0] = byte(clip8(real(s)))
		case FormatInt8IQ:
			b[0] = byte(clip8(real(s)))
			b[1] = byte(clip8(imag(s)))
		case FormatInt16IQ:
			le.PutUint16(b[0:], uint16(clip16(real(s))))
			le.PutUint16(b[2:], uint16(clip16(imag(s))))
		case FormatFloat32IQ:
			le.PutUint32(b[0:], math.Float32bits(float32(real(s))))
			le.PutUint32(b[4:], math.Float32bits(float32(imag(s))))
		}
	}
	_, err := w.Write(buf)
	return err
}

func clip8(v float64) int8 {
	return int8(math.Max(math.MinInt8, math.Min(math.MaxInt8, math.Round(v))))
}

func clip16(v float64) int16 {
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v))))
}
