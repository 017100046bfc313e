package memtool

import "os"

// Access width

// Width is the bus access granularity in bytes.
// Every load and store issued to a backend is exactly one Width wide.
type Width int

const (
	WidthByte Width = 1
	WidthWord Width = 2
	WidthLong Width = 4
	WidthQuad Width = 8
)

// Valid returns true for the widths a backend can be asked to use.
func (w Width) Valid() bool {
	switch w {
	case WidthByte, WidthWord, WidthLong, WidthQuad:
		return true
	}
	return false
}

// HexDigits returns the number of hex digits needed to print one element.
func (w Width) HexDigits() int {
	return int(w) * 2
}

func (w Width) String() string {
	switch w {
	case WidthByte:
		return "byte"
	case WidthWord:
		return "word"
	case WidthLong:
		return "long"
	case WidthQuad:
		return "quad"
	default:
		return "invalid"
	}
}

// Open modes

// Mode selects how a target is opened.
type Mode uint32

const (
	ModeRead   Mode = 0x1
	ModeWrite  Mode = 0x2
	ModeCreate Mode = 0x4
)

// OpenFlags translates the mode into os.OpenFile flags.
func (m Mode) OpenFlags() int {
	var flags int
	switch {
	case m&ModeWrite != 0 && m&ModeRead != 0:
		flags = os.O_RDWR
	case m&ModeWrite != 0:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if m&ModeCreate != 0 {
		flags |= os.O_CREATE
	}
	return flags
}

// General return and error codes

// Err represents the tool error classification.
type Err uint32

const (
	OK            Err = 0
	ErrSyntax     Err = 1
	ErrRange      Err = 2
	ErrInvalidArg Err = 3
	ErrIO         Err = 4
	ErrConfig     Err = 5
	ErrAlloc      Err = 6
	ErrLast       Err = 7
)
