//go:build !linux || nomdio

package memacc

import (
	"memtool/common"
	icommon "memtool/internal/common"
	"memtool/internal/memtool"
)

const mdioSupported = false

func newSocketBus(ifName string, log common.Logger) (RegisterBus, error) {
	return nil, icommon.NewError(memtool.ErrConfig, "mdio", "mdio support not compiled in")
}
