package commands

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"memtool/common"
	icommon "memtool/internal/common"
	"memtool/internal/memacc"
	"memtool/internal/memtool"
	"memtool/internal/printers"
	"memtool/internal/region"
)

const (
	// defaultDisplaySize is used when no region or no region size is given.
	defaultDisplaySize = 0x100

	// maxChunk bounds the bytes moved per backend call.
	maxChunk = 4096
)

const usageMD = `md - memory display

Usage: md [-bwlqsx] REGION

Display (hex dump) a memory region.

Options:
  -b        byte access
  -w        word access (16 bit)
  -l        long access (32 bit)
  -q        quad access (64 bit)
  -s <FILE> display file (default /dev/mem)
  -x        swap bytes at output

Memory regions can be specified in two different forms: START+SIZE
or START-END, If START is omitted it defaults to 0x100
Sizes can be specified as decimal, or if prefixed with 0x as hexadecimal.
An optional suffix of k, M or G is for kbytes, Megabytes or Gigabytes.
`

// MDConfig holds the parsed md command line.
type MDConfig struct {
	File  string
	Width memtool.Width
	Swap  bool
	Area  region.Area
}

// parseMDArgs parses the md arguments, args[0] being the command name.
func parseMDArgs(args []string, errOut io.Writer) (cfg MDConfig, help bool, err error) {
	fs := newFlagSet("md", &cfg.Width, errOut)
	fs.StringVar(&cfg.File, "s", defaultFile, "display file")
	fs.BoolVar(&cfg.Swap, "x", false, "swap bytes at output")
	fs.BoolVar(&help, "h", false, "show help")

	if err := fs.Parse(args[1:]); err != nil {
		return cfg, false, icommon.Wrap(memtool.ErrSyntax, "md", err)
	}
	if help {
		return cfg, true, nil
	}

	cfg.Area = region.Area{Start: 0, Size: defaultDisplaySize}
	if fs.NArg() > 0 {
		area, err := region.ParseArea(fs.Arg(0))
		if err != nil {
			return cfg, false, fmt.Errorf("could not parse: %s: %w", fs.Arg(0), err)
		}
		if area.Size == region.SizeMax {
			area.Size = defaultDisplaySize
		}
		cfg.Area = area
	}

	return cfg, false, nil
}

func runMemoryDisplay(e *Env, args []string) int {
	cfg, help, err := parseMDArgs(args, io.Discard)
	if err != nil {
		e.Log.Error(err)
		return 1
	}
	if help {
		fmt.Fprint(e.Out, usageMD)
		return 0
	}

	if e.Log.Enabled(common.SeverityDebug) {
		e.Log.Debug("md config:\n" + spew.Sdump(cfg))
	}

	if err := MemoryDisplay(e, cfg); err != nil {
		e.Log.Error(err)
		return 1
	}
	return 0
}

// MemoryDisplay dumps cfg.Area of cfg.File to e.Out.
//
// A size that is not a multiple of the access width is rounded down with a
// warning. Reading stops early at the end of a regular file.
func MemoryDisplay(e *Env, cfg MDConfig) (err error) {
	start := cfg.Area.Start
	size := cfg.Area.Size
	width := uint64(cfg.Width)

	if size%width != 0 {
		size -= size % width
		e.Log.Logf(common.SeverityWarning, "skipping truncated read, size=%d", size)
	}
	if size == 0 {
		return nil
	}

	bufsize := size
	if bufsize > maxChunk {
		bufsize = maxChunk
	}
	buf := make([]byte, bufsize)

	h, err := memacc.Open(cfg.File, memtool.ModeRead, memacc.WithLogger(e.Log))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = icommon.Wrap(memtool.ErrIO, "close", cerr)
		}
	}()

	for size > 0 {
		chunk := bufsize
		if size < chunk {
			chunk = size
		}

		n, err := h.Read(start, buf[:chunk], cfg.Width)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}

		if err := printers.MemDisplay(e.Out, buf[:n], start, cfg.Width, cfg.Swap); err != nil {
			return icommon.Wrap(memtool.ErrIO, "md", err)
		}
		if err := e.chunkDone(); err != nil {
			return icommon.Wrap(memtool.ErrIO, "md", err)
		}

		if uint64(n) < chunk {
			// end of file
			break
		}
		start += uint64(n)
		size -= uint64(n)
	}

	return nil
}
