//go:build !linux

package memacc

import (
	icommon "memtool/internal/common"
	"memtool/internal/memtool"
)

func openMmap(path string, mode memtool.Mode, o *options) (Handle, error) {
	return nil, icommon.NewError(memtool.ErrConfig, "mmap", "mmap support not compiled in")
}
