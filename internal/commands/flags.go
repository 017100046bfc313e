package commands

import (
	"flag"
	"io"

	"memtool/internal/memtool"
)

const defaultFile = "/dev/mem"

// widthFlag is one of -b, -w, -l, -q. All four share one destination, so the
// last one given on the command line wins.
type widthFlag struct {
	dst   *memtool.Width
	width memtool.Width
}

func (f widthFlag) String() string   { return "" }
func (f widthFlag) IsBoolFlag() bool { return true }

func (f widthFlag) Set(string) error {
	*f.dst = f.width
	return nil
}

// newFlagSet creates a flag set with the access width flags every subcommand
// accepts. Parse errors are reported on errOut.
func newFlagSet(name string, width *memtool.Width, errOut io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {}

	*width = memtool.WidthLong
	fs.Var(widthFlag{width, memtool.WidthByte}, "b", "byte access")
	fs.Var(widthFlag{width, memtool.WidthWord}, "w", "word access (16 bit)")
	fs.Var(widthFlag{width, memtool.WidthLong}, "l", "long access (32 bit)")
	fs.Var(widthFlag{width, memtool.WidthQuad}, "q", "quad access (64 bit)")
	return fs
}
