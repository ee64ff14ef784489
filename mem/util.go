// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

import (
	"log"
	"sync/atomic"
	"unsafe"
)

// TestAccess attempts to read one 32-bit word from firmware memory, under a
// correct PMP configuration the access faults and is reflected to the
// supervisor trap vector.
func TestAccess(tag string) {
	addr := uintptr(FirmwareStart + 0x10000)
	mem := (*uint32)(unsafe.Pointer(addr))

	log.Printf("%s is about to read firmware memory at %#x", tag, addr)
	val := atomic.LoadUint32(mem)

	log.Printf("%s read firmware memory %#x: %#x (fail - *insecure configuration*)", tag, addr, val)
}
