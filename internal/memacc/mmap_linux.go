//go:build linux

package memacc

import (
	"encoding/binary"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"memtool/common"
	icommon "memtool/internal/common"
	"memtool/internal/memtool"
)

// MmapHandle accesses a file or device node through a shared mapping that is
// set up and torn down around every single Read or Write. Regular files are
// bounds-checked against their size; device nodes are not.
type MmapHandle struct {
	file    *os.File
	path    string
	size    int64
	regular bool
	log     common.Logger
}

func openMmap(path string, mode memtool.Mode, o *options) (*MmapHandle, error) {
	f, err := os.OpenFile(path, mode.OpenFlags(), 0o600)
	if err != nil {
		return nil, icommon.Wrap(memtool.ErrIO, "mmap", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, icommon.Wrap(memtool.ErrIO, "mmap", err)
	}

	o.log.Logf(common.SeverityDebug, "mmap: opened %s (size %d, regular %v)", path, info.Size(), info.Mode().IsRegular())

	return &MmapHandle{
		file:    f,
		path:    path,
		size:    info.Size(),
		regular: info.Mode().IsRegular(),
		log:     o.log,
	}, nil
}

// Size returns the tracked file size. It is only meaningful for regular files.
func (h *MmapHandle) Size() int64 { return h.size }

// IsRegular reports whether the target is a regular file.
func (h *MmapHandle) IsRegular() bool { return h.regular }

func (h *MmapHandle) Read(offset uint64, buf []byte, width memtool.Width) (int, error) {
	if err := checkTransfer("mmap", buf, width); err != nil {
		return 0, err
	}

	nbytes := uint64(len(buf))
	if h.regular {
		size := uint64(h.size)
		if size <= offset {
			return 0, icommon.NewErrorf(memtool.ErrRange, "mmap", "file too small: offset 0x%x, size 0x%x", offset, size)
		}
		if size-offset < nbytes {
			// truncating
			nbytes = size - offset
		}
	}
	nbytes -= nbytes % uint64(width)
	if nbytes == 0 {
		return 0, nil
	}

	err := h.withMapping(offset, nbytes, unix.PROT_READ, func(win []byte) {
		loadElems(buf[:nbytes], win, width)
	})
	if err != nil {
		return 0, err
	}
	return int(nbytes), nil
}

func (h *MmapHandle) Write(offset uint64, buf []byte, width memtool.Width) (int, error) {
	if err := checkTransfer("mmap", buf, width); err != nil {
		return 0, err
	}

	nbytes := uint64(len(buf))
	if nbytes == 0 {
		return 0, nil
	}

	if h.regular && uint64(h.size) < offset+nbytes {
		if err := unix.Fallocate(int(h.file.Fd()), 0, int64(offset), int64(nbytes)); err != nil {
			return 0, icommon.WrapMsg(memtool.ErrAlloc, "mmap", "fallocate", err)
		}
		h.log.Logf(common.SeverityDebug, "mmap: grew %s from %d to %d bytes", h.path, h.size, offset+nbytes)
		h.size = int64(offset + nbytes)
	}

	err := h.withMapping(offset, nbytes, unix.PROT_READ|unix.PROT_WRITE, func(win []byte) {
		storeElems(win, buf, width)
	})
	if err != nil {
		return 0, err
	}
	return int(nbytes), nil
}

func (h *MmapHandle) Close() error {
	h.log.Logf(common.SeverityDebug, "mmap: closing %s", h.path)
	return h.file.Close()
}

// withMapping maps the page aligned window covering [offset, offset+nbytes),
// hands fn the part of it starting at offset and unmaps it again.
func (h *MmapHandle) withMapping(offset, nbytes uint64, prot int, fn func(win []byte)) error {
	pageMask := uint64(unix.Getpagesize()) - 1
	mapStart := offset &^ pageMask
	mapOff := offset - mapStart

	h.log.Logf(common.SeverityDebug, "mmap: map 0x%x+0x%x prot=%#x", mapStart, nbytes+mapOff, prot)

	m, err := unix.Mmap(int(h.file.Fd()), int64(mapStart), int(nbytes+mapOff), prot, unix.MAP_SHARED)
	if err != nil {
		return icommon.WrapMsg(memtool.ErrIO, "mmap", "mmap", err)
	}

	fn(m[mapOff : mapOff+nbytes])

	if err := unix.Munmap(m); err != nil {
		return icommon.WrapMsg(memtool.ErrIO, "mmap", "munmap", err)
	}
	return nil
}

// loadElems copies src to dst with one load of the given width per element.
// Elements are stored in host byte order.
func loadElems(dst, src []byte, width memtool.Width) {
	w := int(width)
	for i := 0; i+w <= len(dst); i += w {
		switch width {
		case memtool.WidthByte:
			dst[i] = *(*uint8)(unsafe.Pointer(&src[i]))
		case memtool.WidthWord:
			binary.NativeEndian.PutUint16(dst[i:], *(*uint16)(unsafe.Pointer(&src[i])))
		case memtool.WidthLong:
			binary.NativeEndian.PutUint32(dst[i:], *(*uint32)(unsafe.Pointer(&src[i])))
		case memtool.WidthQuad:
			binary.NativeEndian.PutUint64(dst[i:], *(*uint64)(unsafe.Pointer(&src[i])))
		}
	}
}

// storeElems copies src to dst with one store of the given width per element.
func storeElems(dst, src []byte, width memtool.Width) {
	w := int(width)
	for i := 0; i+w <= len(src); i += w {
		switch width {
		case memtool.WidthByte:
			*(*uint8)(unsafe.Pointer(&dst[i])) = src[i]
		case memtool.WidthWord:
			*(*uint16)(unsafe.Pointer(&dst[i])) = binary.NativeEndian.Uint16(src[i:])
		case memtool.WidthLong:
			*(*uint32)(unsafe.Pointer(&dst[i])) = binary.NativeEndian.Uint32(src[i:])
		case memtool.WidthQuad:
			*(*uint64)(unsafe.Pointer(&dst[i])) = binary.NativeEndian.Uint64(src[i:])
		}
	}
}
