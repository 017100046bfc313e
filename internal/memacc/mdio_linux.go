//go:build linux && !nomdio

package memacc

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"memtool/common"
	icommon "memtool/internal/common"
	"memtool/internal/memtool"
)

const mdioSupported = true

// miiIfreq is struct ifreq with struct mii_ioctl_data in its union.
type miiIfreq struct {
	Name   [unix.IFNAMSIZ]byte
	PhyID  uint16
	RegNum uint16
	ValIn  uint16
	ValOut uint16
	_      [16]byte
}

// socketBus issues SIOCGMIIREG/SIOCSMIIREG on a datagram control socket.
type socketBus struct {
	fd   int
	name [unix.IFNAMSIZ]byte
	log  common.Logger
}

func newSocketBus(ifName string, log common.Logger) (RegisterBus, error) {
	if len(ifName) >= unix.IFNAMSIZ {
		return nil, icommon.NewErrorf(memtool.ErrSyntax, "mdio", "device string too long: %s", ifName)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, icommon.WrapMsg(memtool.ErrIO, "mdio", "socket", err)
	}
	log.Logf(common.SeverityDebug, "mdio: control socket fd %d for %s", fd, ifName)

	b := &socketBus{fd: fd, log: log}
	copy(b.name[:], ifName)
	return b, nil
}

func (b *socketBus) ioctl(req uint, ifr *miiIfreq) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), uintptr(req), uintptr(unsafe.Pointer(ifr)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (b *socketBus) ReadReg(phyID, reg uint16) (uint16, error) {
	ifr := miiIfreq{Name: b.name, PhyID: phyID, RegNum: reg}
	if err := b.ioctl(unix.SIOCGMIIREG, &ifr); err != nil {
		return 0, err
	}
	return ifr.ValOut, nil
}

func (b *socketBus) WriteReg(phyID, reg, val uint16) error {
	ifr := miiIfreq{Name: b.name, PhyID: phyID, RegNum: reg, ValIn: val}
	return b.ioctl(unix.SIOCSMIIREG, &ifr)
}

func (b *socketBus) Close() error {
	if b.fd < 0 {
		return icommon.NewError(memtool.ErrIO, "mdio", "socket already closed")
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}
