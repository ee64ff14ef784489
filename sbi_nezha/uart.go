// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && riscv64

package main

import (
	"github.com/usbarmory/GoSBI-nezha/internal/platform"
)

// D1 UART0 (16550 compatible, 32-bit register stride)
const (
	UART0_BASE = 0x02500000

	UART_RBR = 0x00
	UART_THR = 0x00
	UART_LSR = 0x14

	LSR_DR   = 1 << 0
	LSR_THRE = 1 << 5
)

// UART represents a serial port already configured by the boot ROM/SPL.
type UART struct {
	Base      uint64
	Registers platform.Registers
}

// Tx transmits a single character.
func (hw *UART) Tx(c byte) {
	for hw.Registers.Read32(hw.Base+UART_LSR)&LSR_THRE == 0 {
	}

	hw.Registers.Write32(hw.Base+UART_THR, uint32(c))
}

// Rx receives a single character, valid is false when no character is
// available.
func (hw *UART) Rx() (c byte, valid bool) {
	if hw.Registers.Read32(hw.Base+UART_LSR)&LSR_DR == 0 {
		return
	}

	return byte(hw.Registers.Read32(hw.Base + UART_RBR)), true
}

// Write transmits buf, it implements io.Writer.
func (hw *UART) Write(buf []byte) (n int, err error) {
	for n = 0; n < len(buf); n++ {
		hw.Tx(buf[n])
	}

	return
}

// Read receives available characters into buf, it implements io.Reader.
func (hw *UART) Read(buf []byte) (n int, err error) {
	for n = 0; n < len(buf); n++ {
		c, valid := hw.Rx()

		if !valid {
			break
		}

		buf[n] = c
	}

	return
}
