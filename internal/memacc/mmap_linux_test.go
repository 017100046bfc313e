//go:build linux

package memacc

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	icommon "memtool/internal/common"
	"memtool/internal/memtool"
)

func tempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mem.bin")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func openMmapHandle(t *testing.T, spec string, mode memtool.Mode) *MmapHandle {
	t.Helper()
	h, err := Open(spec, mode)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", spec, err)
	}
	mh, ok := h.(*MmapHandle)
	if !ok {
		t.Fatalf("Open(%q) returned %T, want *MmapHandle", spec, h)
	}
	t.Cleanup(func() { mh.Close() })
	return mh
}

func TestMmapOpen(t *testing.T) {
	path := tempFile(t, pattern(100))

	for _, spec := range []string{path, PrefixMmap + path} {
		h := openMmapHandle(t, spec, memtool.ModeRead)
		if !h.IsRegular() {
			t.Errorf("%s: expected regular file", spec)
		}
		if h.Size() != 100 {
			t.Errorf("%s: size = %d, want 100", spec, h.Size())
		}
	}

	h, err := Open(filepath.Join(t.TempDir(), "missing"), memtool.ModeRead)
	if h != nil || !errors.Is(err, icommon.ErrIO) {
		t.Errorf("Open(missing) = (%v, %v), want I/O error", h, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected cause to be ErrNotExist, got %v", err)
	}
}

func TestMmapCreateMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.bin")
	h := openMmapHandle(t, path, memtool.ModeRead|memtool.ModeWrite|memtool.ModeCreate)
	if h.Size() != 0 {
		t.Errorf("new file size = %d", h.Size())
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm&^0o600 != 0 {
		t.Errorf("created file has permissions %v, want subset of 0600", perm)
	}
}

func TestMmapRead(t *testing.T) {
	data := pattern(3 * 4096)
	path := tempFile(t, data)
	h := openMmapHandle(t, path, memtool.ModeRead)

	tests := []struct {
		name   string
		offset uint64
		length int
	}{
		{"aligned", 0, 64},
		{"unaligned", 0x123, 32},
		{"page crossing", 4096 - 8, 16},
		{"second page", 4096, 256},
	}

	for _, tt := range tests {
		for _, width := range []memtool.Width{memtool.WidthByte, memtool.WidthWord, memtool.WidthLong, memtool.WidthQuad} {
			buf := make([]byte, tt.length)
			n, err := h.Read(tt.offset, buf, width)
			if err != nil {
				t.Fatalf("%s/%v: Read failed: %v", tt.name, width, err)
			}
			if n != tt.length {
				t.Errorf("%s/%v: Read returned %d, want %d", tt.name, width, n, tt.length)
			}
			want := data[tt.offset : tt.offset+uint64(tt.length)]
			if diff := cmp.Diff(want, buf); diff != "" {
				t.Errorf("%s/%v: data mismatch (-want +got):\n%s", tt.name, width, diff)
			}
		}
	}
}

func TestMmapRoundTrip(t *testing.T) {
	widths := []memtool.Width{memtool.WidthByte, memtool.WidthWord, memtool.WidthLong, memtool.WidthQuad}
	offsets := []uint64{0, 4096, 0x11, 4096 + 6, 3}

	for _, width := range widths {
		for _, offset := range offsets {
			path := tempFile(t, make([]byte, 8192))
			h := openMmapHandle(t, path, memtool.ModeRead|memtool.ModeWrite)

			const count = 10
			vals := make([]uint64, count)
			in := make([]byte, count*int(width))
			for i := range vals {
				vals[i] = 0x0102030405060708 * uint64(i+1)
				putElem(in[i*int(width):], vals[i], width)
			}

			n, err := h.Write(offset, in, width)
			if err != nil {
				t.Fatalf("width %v offset %#x: Write failed: %v", width, offset, err)
			}
			if n != len(in) {
				t.Errorf("width %v offset %#x: Write returned %d", width, offset, n)
			}

			out := make([]byte, len(in))
			if _, err := h.Read(offset, out, width); err != nil {
				t.Fatalf("width %v offset %#x: Read failed: %v", width, offset, err)
			}
			for i := range vals {
				mask := ^uint64(0) >> (64 - 8*uint(width))
				if got := getElem(out[i*int(width):], width); got != vals[i]&mask {
					t.Errorf("width %v offset %#x: element %d = %#x, want %#x", width, offset, i, got, vals[i]&mask)
				}
			}
		}
	}
}

func putElem(b []byte, v uint64, width memtool.Width) {
	switch width {
	case memtool.WidthByte:
		b[0] = byte(v)
	case memtool.WidthWord:
		binary.NativeEndian.PutUint16(b, uint16(v))
	case memtool.WidthLong:
		binary.NativeEndian.PutUint32(b, uint32(v))
	case memtool.WidthQuad:
		binary.NativeEndian.PutUint64(b, v)
	}
}

func getElem(b []byte, width memtool.Width) uint64 {
	switch width {
	case memtool.WidthByte:
		return uint64(b[0])
	case memtool.WidthWord:
		return uint64(binary.NativeEndian.Uint16(b))
	case memtool.WidthLong:
		return uint64(binary.NativeEndian.Uint32(b))
	default:
		return binary.NativeEndian.Uint64(b)
	}
}

func TestMmapReadTruncatesAtEOF(t *testing.T) {
	data := pattern(100)
	path := tempFile(t, data)
	h := openMmapHandle(t, path, memtool.ModeRead)

	buf := make([]byte, 64)
	n, err := h.Read(80, buf, memtool.WidthByte)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 20 {
		t.Errorf("Read returned %d, want 20", n)
	}
	if diff := cmp.Diff(data[80:], buf[:n]); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	for _, b := range buf[n:] {
		if b != 0 {
			t.Fatalf("Read touched bytes beyond EOF: %v", buf[n:])
		}
	}

	// The truncated length is rounded down to the width.
	buf = make([]byte, 16)
	n, err = h.Read(90, buf, memtool.WidthLong)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 8 {
		t.Errorf("Read returned %d, want 8", n)
	}
}

func TestMmapReadPastEnd(t *testing.T) {
	path := tempFile(t, pattern(100))
	h := openMmapHandle(t, path, memtool.ModeRead)

	for _, offset := range []uint64{100, 4096, 1 << 40} {
		_, err := h.Read(offset, make([]byte, 4), memtool.WidthLong)
		if !errors.Is(err, icommon.ErrRange) {
			t.Errorf("Read at %#x: error = %v, want range error", offset, err)
		}
	}
}

func TestMmapWriteGrowsFile(t *testing.T) {
	path := tempFile(t, pattern(10))
	h := openMmapHandle(t, path, memtool.ModeRead|memtool.ModeWrite)

	in := []byte{0xde, 0xad, 0xbe, 0xef, 0xca, 0xfe, 0xba, 0xbe}
	if _, err := h.Write(0x1003, in, memtool.WidthWord); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if h.Size() != 0x100b {
		t.Errorf("tracked size = %#x, want 0x100b", h.Size())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 0x100b {
		t.Errorf("file size = %#x, want 0x100b", info.Size())
	}

	out := make([]byte, 16)
	n, err := h.Read(0x1000, out, memtool.WidthByte)
	if err != nil {
		t.Fatalf("Read after growth failed: %v", err)
	}
	if n != 11 {
		t.Errorf("Read returned %d, want 11", n)
	}
	if diff := cmp.Diff(append([]byte{0, 0, 0}, in...), out[:n]); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if diff := cmp.Diff(pattern(10), content[:10]); diff != "" {
		t.Errorf("original content changed (-want +got):\n%s", diff)
	}
}

func TestMmapWriteReadOnly(t *testing.T) {
	path := tempFile(t, pattern(64))
	h := openMmapHandle(t, path, memtool.ModeRead)

	_, err := h.Write(0, make([]byte, 4), memtool.WidthLong)
	if !errors.Is(err, icommon.ErrIO) {
		t.Errorf("Write on read-only handle: error = %v, want I/O error", err)
	}
	if !errors.Is(err, unix.EACCES) {
		t.Errorf("expected EACCES from mmap, got %v", err)
	}
}

func TestMmapInvalidTransfer(t *testing.T) {
	path := tempFile(t, pattern(64))
	h := openMmapHandle(t, path, memtool.ModeRead|memtool.ModeWrite)

	if _, err := h.Read(0, make([]byte, 6), memtool.WidthLong); !errors.Is(err, icommon.ErrInvalidArg) {
		t.Errorf("Read length 6 width 4: %v", err)
	}
	if _, err := h.Write(0, make([]byte, 4), memtool.Width(3)); !errors.Is(err, icommon.ErrInvalidArg) {
		t.Errorf("Write width 3: %v", err)
	}
	if n, err := h.Read(0, nil, memtool.WidthLong); n != 0 || err != nil {
		t.Errorf("empty Read = (%d, %v)", n, err)
	}
	if n, err := h.Write(0, nil, memtool.WidthLong); n != 0 || err != nil {
		t.Errorf("empty Write = (%d, %v)", n, err)
	}
}

func TestMmapClose(t *testing.T) {
	path := tempFile(t, pattern(16))
	h, err := Open(path, memtool.ModeRead)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := h.Close(); err == nil {
		t.Error("second Close should fail")
	}
}
