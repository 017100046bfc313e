// Package memacc provides byte-range access to memory-like targets: regular
// files and device nodes such as /dev/mem through mmap, and MDIO register
// spaces of network PHYs through ioctl.
//
// All targets share the Handle contract. Reads and writes are issued as a
// sequence of loads or stores of exactly the requested width, which matters
// for device registers that only respond to accesses of their bus width.
package memacc

import (
	"strings"

	"memtool/common"
	icommon "memtool/internal/common"
	"memtool/internal/memtool"
)

// Handle is an open access session bound to one backend.
//
// Read fills buf from the target starting at offset and returns the number of
// bytes transferred, always a whole multiple of width. Write stores buf at
// offset. len(buf) must be a multiple of width. Close releases the backend
// resources; a Handle is closed exactly once by the code that opened it.
//
// A Handle is not safe for concurrent use.
type Handle interface {
	Read(offset uint64, buf []byte, width memtool.Width) (int, error)
	Write(offset uint64, buf []byte, width memtool.Width) (int, error)
	Close() error
}

// Target specifier prefixes.
const (
	PrefixMmap = "mmap:"
	PrefixMDIO = "mdio:"
)

type options struct {
	log common.Logger
	bus RegisterBus
}

// Option configures Open.
type Option func(*options)

// WithLogger traces backend system calls at debug severity.
func WithLogger(log common.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRegisterBus makes an mdio: target use bus for its register
// transactions instead of opening a control socket.
func WithRegisterBus(bus RegisterBus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// Open selects a backend from the prefix of spec and opens it.
//
//	mmap:PATH          file or device node, mapped per access
//	mdio:IFNAME.PHYID  MDIO register space of a PHY
//	PATH               same as mmap:PATH
func Open(spec string, mode memtool.Mode, opts ...Option) (Handle, error) {
	o := options{log: common.NewNoOpLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		h   Handle
		err error
	)
	switch {
	case strings.HasPrefix(spec, PrefixMmap):
		h, err = openMmap(strings.TrimPrefix(spec, PrefixMmap), mode, &o)
	case strings.HasPrefix(spec, PrefixMDIO):
		if !mdioSupported && o.bus == nil {
			return nil, icommon.NewError(memtool.ErrConfig, "mdio", "mdio support not compiled in")
		}
		h, err = openMDIO(strings.TrimPrefix(spec, PrefixMDIO), &o)
	default:
		h, err = openMmap(spec, mode, &o)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// checkTransfer validates the width and length of a transfer request.
func checkTransfer(op string, buf []byte, width memtool.Width) error {
	if !width.Valid() {
		return icommon.NewErrorf(memtool.ErrInvalidArg, op, "invalid access width %d", width)
	}
	if len(buf)%int(width) != 0 {
		return icommon.NewErrorf(memtool.ErrInvalidArg, op, "length %d is not a multiple of width %d", len(buf), width)
	}
	return nil
}
