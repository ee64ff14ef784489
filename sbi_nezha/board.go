// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64

package main

import (
	_ "unsafe"

	"github.com/usbarmory/tamago/riscv64"

	"github.com/usbarmory/GoSBI-nezha/mem"
)

// C906 timer frequency (24MHz oscillator)
const timerFreq = 24000000

//go:linkname ramStart runtime.ramStart
var ramStart uint64 = mem.RuntimeStart

//go:linkname ramSize runtime.ramSize
var ramSize uint64 = mem.RuntimeSize

// RV64 is the T-Head C906 core instance.
var RV64 = &riscv64.CPU{}

// UART0 is the serial port used for both firmware logs and the supervisor
// console.
var UART0 = &UART{
	Base:      UART0_BASE,
	Registers: mmio{},
}

var rngState uint64

//go:linkname hwinit runtime.hwinit
func hwinit() {
	RV64.Init()
}

//go:linkname printk runtime.printk
func printk(c byte) {
	UART0.Tx(c)
}

//go:linkname nanotime1 runtime.nanotime1
func nanotime1() int64 {
	return int64(read_time() * 1000 / (timerFreq / 1000000))
}

// getRandomData fills b with a timer seeded xorshift sequence, the D1 TRNG
// is not used by the firmware.
//
//go:linkname getRandomData runtime.getRandomData
func getRandomData(b []byte) {
	if rngState == 0 {
		rngState = read_time() | 1
	}

	for i := range b {
		rngState ^= rngState << 13
		rngState ^= rngState >> 7
		rngState ^= rngState << 17

		b[i] = byte(rngState)
	}
}
