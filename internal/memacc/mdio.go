package memacc

import (
	"encoding/binary"
	"strconv"
	"strings"

	"memtool/common"
	icommon "memtool/internal/common"
	"memtool/internal/memtool"
)

// ifNameSize is IFNAMSIZ, the interface name buffer size including the
// terminating NUL.
const ifNameSize = 16

// RegisterBus performs single 16-bit register transactions on the PHY
// register spaces behind one network interface.
type RegisterBus interface {
	ReadReg(phyID, reg uint16) (uint16, error)
	WriteReg(phyID, reg, val uint16) error
	Close() error
}

// MDIOHandle accesses the register space of one PHY. Offsets are byte
// offsets: register n lives at offset 2n. Only 16-bit accesses are allowed.
type MDIOHandle struct {
	bus    RegisterBus
	ifName string
	phyID  uint16
	log    common.Logger
}

// parseMDIOSpec splits IFNAME.PHYID at the last dot.
func parseMDIOSpec(spec string) (string, uint16, error) {
	delim := strings.LastIndexByte(spec, '.')
	if delim < 0 {
		return "", 0, icommon.NewError(memtool.ErrSyntax, "mdio", "failed to parse phy specifier, no \".\"")
	}

	ifName := spec[:delim]
	if len(ifName) >= ifNameSize {
		return "", 0, icommon.NewErrorf(memtool.ErrSyntax, "mdio", "device string too long: %s", ifName)
	}

	// Base 0 accepts 0x, 0o and 0b prefixes as well as decimal.
	val, err := strconv.ParseInt(spec[delim+1:], 0, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return "", 0, icommon.NewErrorf(memtool.ErrRange, "mdio", "phy_id out of range: %s", spec[delim+1:])
		}
		return "", 0, icommon.NewErrorf(memtool.ErrSyntax, "mdio", "failed to parse phy_id: %q", spec[delim+1:])
	}
	if val < 0 || val >= 1<<16 {
		return "", 0, icommon.NewErrorf(memtool.ErrRange, "mdio", "phy_id out of range: %d", val)
	}

	return ifName, uint16(val), nil
}

func openMDIO(spec string, o *options) (*MDIOHandle, error) {
	ifName, phyID, err := parseMDIOSpec(spec)
	if err != nil {
		return nil, err
	}

	bus := o.bus
	if bus == nil {
		bus, err = newSocketBus(ifName, o.log)
		if err != nil {
			return nil, err
		}
	}

	o.log.Logf(common.SeverityDebug, "mdio: opened %s phy 0x%x", ifName, phyID)

	return &MDIOHandle{
		bus:    bus,
		ifName: ifName,
		phyID:  phyID,
		log:    o.log,
	}, nil
}

// IfName returns the network interface the PHY is attached to.
func (h *MDIOHandle) IfName() string { return h.ifName }

// PhyID returns the PHY address.
func (h *MDIOHandle) PhyID() uint16 { return h.phyID }

func (h *MDIOHandle) checkTransfer(buf []byte, width memtool.Width) error {
	if width != memtool.WidthWord {
		return icommon.NewError(memtool.ErrInvalidArg, "mdio", "mdio can only be accessed with memory width 2")
	}
	return checkTransfer("mdio", buf, width)
}

// Read reads len(buf)/2 consecutive registers starting at register offset/2.
// A failing transaction aborts the read; nothing is copied to buf then.
func (h *MDIOHandle) Read(offset uint64, buf []byte, width memtool.Width) (int, error) {
	if err := h.checkTransfer(buf, width); err != nil {
		return 0, err
	}

	regs := make([]uint16, len(buf)/2)
	for i := range regs {
		reg := uint16(offset/2 + uint64(i))
		val, err := h.bus.ReadReg(h.phyID, reg)
		if err != nil {
			return 0, icommon.WrapMsg(memtool.ErrIO, "mdio", "failure to read register", err)
		}
		h.log.Logf(common.SeverityDebug, "mdio: %s phy 0x%x reg 0x%x -> 0x%04x", h.ifName, h.phyID, reg, val)
		regs[i] = val
	}

	for i, val := range regs {
		binary.NativeEndian.PutUint16(buf[2*i:], val)
	}
	return 2 * len(regs), nil
}

// Write writes len(buf)/2 consecutive registers starting at register
// offset/2, stopping at the first failing transaction.
func (h *MDIOHandle) Write(offset uint64, buf []byte, width memtool.Width) (int, error) {
	if err := h.checkTransfer(buf, width); err != nil {
		return 0, err
	}

	for i := 0; 2*i < len(buf); i++ {
		reg := uint16(offset/2 + uint64(i))
		val := binary.NativeEndian.Uint16(buf[2*i:])
		h.log.Logf(common.SeverityDebug, "mdio: %s phy 0x%x reg 0x%x <- 0x%04x", h.ifName, h.phyID, reg, val)
		if err := h.bus.WriteReg(h.phyID, reg, val); err != nil {
			return 0, icommon.WrapMsg(memtool.ErrIO, "mdio", "failure to write register", err)
		}
	}
	return len(buf), nil
}

func (h *MDIOHandle) Close() error {
	return h.bus.Close()
}
