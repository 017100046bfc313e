package commands

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"memtool/common"
	icommon "memtool/internal/common"
	"memtool/internal/memacc"
	"memtool/internal/memtool"
	"memtool/internal/region"
)

const usageMW = `mw - memory write

Usage: mw [-bwlqd] OFFSET DATA...

Write DATA value(s) to the specified REGION.

Options:
  -b        byte access
  -w        word access (16 bit)
  -l        long access (32 bit)
  -q        quad access (64 bit)
  -d <FILE> write file (default /dev/mem)
`

// MWConfig holds the parsed mw command line.
type MWConfig struct {
	File   string
	Width  memtool.Width
	Offset uint64
	Data   []uint64
}

func parseMWArgs(args []string, errOut io.Writer) (cfg MWConfig, help bool, err error) {
	fs := newFlagSet("mw", &cfg.Width, errOut)
	fs.StringVar(&cfg.File, "d", defaultFile, "write file")
	fs.BoolVar(&help, "h", false, "show help")

	if err := fs.Parse(args[1:]); err != nil {
		return cfg, false, icommon.Wrap(memtool.ErrSyntax, "mw", err)
	}
	if help {
		return cfg, true, nil
	}

	if fs.NArg() < 2 {
		return cfg, false, icommon.NewError(memtool.ErrSyntax, "mw", "Too few parameters for mw")
	}

	offset, rest, err := region.ParseUint(fs.Arg(0))
	if err != nil {
		return cfg, false, fmt.Errorf("could not parse: %s: %w", fs.Arg(0), err)
	}
	if rest != "" {
		return cfg, false, icommon.NewErrorf(memtool.ErrSyntax, "mw", "could not parse: %s", fs.Arg(0))
	}
	cfg.Offset = offset

	for _, arg := range fs.Args()[1:] {
		val, err := region.ParseValue(arg)
		if err != nil {
			return cfg, false, fmt.Errorf("could not parse: %s: %w", arg, err)
		}
		cfg.Data = append(cfg.Data, val)
	}

	return cfg, false, nil
}

func runMemoryWrite(e *Env, args []string) int {
	cfg, help, err := parseMWArgs(args, io.Discard)
	if err != nil {
		e.Log.Error(err)
		return 1
	}
	if help {
		fmt.Fprint(e.Out, usageMW)
		return 0
	}

	if e.Log.Enabled(common.SeverityDebug) {
		e.Log.Debug("mw config:\n" + spew.Sdump(cfg))
	}

	if err := MemoryWrite(e, cfg); err != nil {
		e.Log.Error(err)
		return 1
	}
	return 0
}

// putValue stores val truncated to width in host byte order.
func putValue(b []byte, val uint64, width memtool.Width) {
	switch width {
	case memtool.WidthByte:
		b[0] = uint8(val)
	case memtool.WidthWord:
		binary.NativeEndian.PutUint16(b, uint16(val))
	case memtool.WidthLong:
		binary.NativeEndian.PutUint32(b, uint32(val))
	case memtool.WidthQuad:
		binary.NativeEndian.PutUint64(b, val)
	}
}

// MemoryWrite writes cfg.Data as consecutive width sized elements starting
// at cfg.Offset. The target is created if it does not exist.
func MemoryWrite(e *Env, cfg MWConfig) (err error) {
	width := int(cfg.Width)
	size := len(cfg.Data) * width
	if size == 0 {
		return nil
	}

	bufsize := size
	if bufsize > maxChunk {
		bufsize = maxChunk
	}
	buf := make([]byte, bufsize)

	h, err := memacc.Open(cfg.File, memtool.ModeRead|memtool.ModeWrite|memtool.ModeCreate,
		memacc.WithLogger(e.Log))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = icommon.Wrap(memtool.ErrIO, "close", cerr)
		}
	}()

	adr := cfg.Offset
	data := cfg.Data
	for len(data) > 0 {
		i := 0
		for ; i < len(data) && (i+1)*width <= bufsize; i++ {
			putValue(buf[i*width:], data[i], cfg.Width)
		}
		data = data[i:]

		n, err := h.Write(adr, buf[:i*width], cfg.Width)
		if err != nil {
			return err
		}
		if n != i*width {
			return icommon.NewErrorf(memtool.ErrIO, "mw", "short write at 0x%x: %d of %d bytes", adr, n, i*width)
		}
		adr += uint64(n)
	}

	return nil
}
