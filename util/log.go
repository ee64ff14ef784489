// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"sync"

	"golang.org/x/term"
)

const outputLimit = 1024
const flushChr = 0x0a // \n

// Serial represents a character device.
type Serial interface {
	Tx(c byte)
	Rx() (c byte, valid bool)
}

// Console implements the supervisor console, output is line buffered so that
// supervisor and firmware logs do not interleave.
type Console struct {
	sync.Mutex

	// Serial is the underlying character device.
	Serial Serial
	// Term, if not nil, receives flushed supervisor output highlighted
	// in red.
	Term *term.Terminal

	buf bytes.Buffer
}

func (c *Console) flush() {
	if c.Term != nil {
		c.Term.Write(c.Term.Escape.Red)
		c.Term.Write(c.buf.Bytes())
		c.Term.Write(c.Term.Escape.Reset)
	} else if c.Serial != nil {
		for _, b := range c.buf.Bytes() {
			c.Serial.Tx(b)
		}
	}

	c.buf.Reset()
}

// Putchar buffers a supervisor character, the buffer is flushed on newline
// or once it exceeds its limit.
func (c *Console) Putchar(b byte) {
	c.Lock()
	defer c.Unlock()

	c.buf.WriteByte(b)

	if b == flushChr || c.buf.Len() > outputLimit {
		c.flush()
	}
}

// Getchar returns a pending input character, if any.
func (c *Console) Getchar() (b byte, ok bool) {
	if c.Serial == nil {
		return
	}

	return c.Serial.Rx()
}

// Flush writes any pending supervisor output.
func (c *Console) Flush() {
	c.Lock()
	defer c.Unlock()

	if c.buf.Len() > 0 {
		c.flush()
	}
}
