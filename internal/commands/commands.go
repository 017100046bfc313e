// Package commands implements the memtool command line: the md and mw
// subcommands and the dispatcher in front of them.
package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"memtool/common"
)

const progName = "memtool"

// Version is reported by "memtool -V". Release builds override it with
// -ldflags "-X memtool/internal/commands.Version=...".
var Version = "2018.03.0"

// Env is the environment a subcommand runs in.
type Env struct {
	// Out receives command output. It is flushed after every displayed
	// chunk when Interactive is set.
	Out         *bufio.Writer
	Interactive bool
	Log         common.Logger
}

func (e *Env) chunkDone() error {
	if e.Interactive {
		return e.Out.Flush()
	}
	return nil
}

type command struct {
	name string
	run  func(e *Env, args []string) int
}

var commands = []command{
	{name: "md", run: runMemoryDisplay},
	{name: "mw", run: runMemoryWrite},
}

const usageText = `memtool - display and modify memory

Usage: memtool [-V] [-v] <cmd> [OPTIONS]

memtool is divided into subcommands. Supported commands are:
md: memory display, Show regions of memory
mw: memory write, write values to memory

To show help for a subcommand do 'memtool <cmd> -h'

memtool is a collection of tools to show (hexdump) and modify arbitrary files.
By default /dev/mem is used to allow access to physical memory.

Global options:
  -V        print version and exit
  -v        verbose, trace backend operations
`

// Main runs the tool with the process arguments args, args[0] being the
// program name, and returns the exit code.
//
// When invoked as "memtool" the subcommand is args[1]; when invoked through a
// link named after a subcommand, args[0] selects it.
func Main(args []string, stdout, stderr io.Writer) int {
	log := common.NewStdLoggerWithWriter(stderr, progName, common.SeverityWarning)

	if len(args) > 0 && filepath.Base(args[0]) == progName {
		args = args[1:]

	globals:
		for len(args) > 0 {
			switch args[0] {
			case "-V":
				fmt.Fprintf(stdout, "%s %s\n", progName, Version)
				return 0
			case "-v":
				log.SetMinLevel(common.SeverityDebug)
				args = args[1:]
			default:
				break globals
			}
		}
	}

	if len(args) < 1 {
		log.Log(common.SeverityError, "No command given")
		fmt.Fprint(stdout, usageText)
		return 1
	}

	name := filepath.Base(args[0])
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}

		env := &Env{
			Out:         bufio.NewWriter(stdout),
			Interactive: isTerminal(stdout),
			Log:         log,
		}
		ret := cmd.run(env, args)
		if err := env.Out.Flush(); err != nil {
			log.Error(err)
			return 1
		}
		return ret
	}

	log.Logf(common.SeverityError, "No such command: %s", args[0])
	fmt.Fprint(stdout, usageText)
	return 1
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
