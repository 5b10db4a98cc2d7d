package samples

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/gnss-acquisition/core"
)

func TestReadInt8IQ(t *testing.T) {
	raw := []byte{1, 0xff, 0x80, 0x7f}
	got, err := Read(bytes.NewReader(raw), FormatInt8IQ, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []complex128{complex(1, -1), complex(-128, 127)}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadRealPromotesToComplex(t *testing.T) {
	got, err := Read(bytes.NewReader([]byte{3, 0xfd}), FormatInt8, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0] != complex(3, 0) || got[1] != complex(-3, 0) {
		t.Fatalf("unexpected samples %v", got)
	}
}

func TestWriteReadRoundTripsEachFormat(t *testing.T) {
	in := []complex128{complex(5, -7), complex(-100, 42), complex(0, 1)}
	for _, f := range []Format{FormatInt8IQ, FormatInt16IQ, FormatFloat32IQ} {
		var buf bytes.Buffer
		if err := Write(&buf, f, in); err != nil {
			t.Fatalf("%s: Write: %v", f, err)
		}
		out, err := Read(&buf, f, len(in))
		if err != nil {
			t.Fatalf("%s: Read: %v", f, err)
		}
		for i := range in {
			if out[i] != in[i] {
				t.Errorf("%s sample %d = %v, want %v", f, i, out[i], in[i])
			}
		}
	}
}

func TestReadShortCaptureIsInsufficient(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{1, 2, 3}), FormatInt8IQ, 4)
	if !errors.Is(err, core.ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestLoadHonoursOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, []byte{9, 9, 1, 2, 3, 4}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	got, err := Load(path, FormatInt8IQ, 2, 2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0] != complex(1, 2) || got[1] != complex(3, 4) {
		t.Fatalf("unexpected samples %v", got)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" INT16IQ "); err != nil || f != FormatInt16IQ {
		t.Fatalf("ParseFormat = %q, %v", f, err)
	}
	if _, err := ParseFormat("wav"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}
