package printers

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"strings"

	"memtool/internal/memtool"
)

const (
	dispLineLen   = 16
	dispFieldCols = 52
)

// MemPrinter renders memory contents as a hex dump: an address label, the
// line's elements at the configured width and an ASCII gutter.
//
//	00000000: 464c457f 00010102 00000000 00000000    .ELF............
type MemPrinter struct {
	writer io.Writer
	width  memtool.Width
	swab   bool
}

// NewMemPrinter constructs a MemPrinter for 32 bit elements.
func NewMemPrinter(writer io.Writer) *MemPrinter {
	return &MemPrinter{
		writer: writer,
		width:  memtool.WidthLong,
	}
}

// SetWidth sets the element width. Invalid widths are ignored.
func (p *MemPrinter) SetWidth(width memtool.Width) {
	if width.Valid() {
		p.width = width
	}
}

func (p *MemPrinter) Width() memtool.Width { return p.width }

// SetSwap enables byte swapping of every element before it is printed.
// The ASCII gutter always shows the bytes in memory order.
func (p *MemPrinter) SetSwap(swab bool) { p.swab = swab }

func (p *MemPrinter) Swap() bool { return p.swab }

// Display prints buf, whose first byte lives at address offs. buf holds
// data exactly as read from the target, in host byte order.
func (p *MemPrinter) Display(buf []byte, offs uint64) error {
	var sb strings.Builder
	w := int(p.width)

	for {
		lineBytes := len(buf)
		if lineBytes > dispLineLen {
			lineBytes = dispLineLen
		}
		line := buf[:lineBytes]

		sb.Reset()
		fmt.Fprintf(&sb, "%08x:", offs)

		count := dispFieldCols
		for i := 0; i+w <= lineBytes; i += w {
			n, _ := fmt.Fprintf(&sb, " %0*x", p.width.HexDigits(), p.element(line[i:i+w]))
			count -= n
		}
		for ; count > 0; count-- {
			sb.WriteByte(' ')
		}

		for _, c := range line {
			if c < 0x20 || c > 0x7e {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(c)
			}
		}
		sb.WriteByte('\n')

		if _, err := io.WriteString(p.writer, sb.String()); err != nil {
			return err
		}

		buf = buf[lineBytes:]
		offs += uint64(lineBytes)
		if len(buf) == 0 {
			return nil
		}
	}
}

func (p *MemPrinter) element(b []byte) uint64 {
	switch p.width {
	case memtool.WidthQuad:
		v := binary.NativeEndian.Uint64(b)
		if p.swab {
			v = bits.ReverseBytes64(v)
		}
		return v
	case memtool.WidthLong:
		v := binary.NativeEndian.Uint32(b)
		if p.swab {
			v = bits.ReverseBytes32(v)
		}
		return uint64(v)
	case memtool.WidthWord:
		v := binary.NativeEndian.Uint16(b)
		if p.swab {
			v = bits.ReverseBytes16(v)
		}
		return uint64(v)
	default:
		return uint64(b[0])
	}
}

// MemDisplay renders buf at offs to w with the given element width.
func MemDisplay(w io.Writer, buf []byte, offs uint64, width memtool.Width, swab bool) error {
	p := NewMemPrinter(w)
	p.SetWidth(width)
	p.SetSwap(swab)
	return p.Display(buf, offs)
}
