// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64

package main

import (
	"fmt"

	"github.com/usbarmory/GoSBI-nezha/internal/sbi"
)

// defined in sbi.s
func ecall(ext uint64, fid uint64, arg0 uint64, arg1 uint64) (err int64, val int64)
func rdtime() uint64

func call(ext uint64, fid uint64, arg0 uint64, arg1 uint64) (val int64, err error) {
	res, val := ecall(ext, fid, arg0, arg1)

	if res != sbi.SUCCESS {
		return 0, fmt.Errorf("SBI error %d (ext:%#x fid:%d)", res, ext, fid)
	}

	return
}

func putchar(c byte) {
	ecall(sbi.EXT_CONSOLE_PUTCHAR, 0, uint64(c), 0)
}

func shutdown() {
	ecall(sbi.EXT_SRST, sbi.SRST_SYSTEM_RESET, 0, 0)
}
