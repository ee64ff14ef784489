// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package firmware

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/usbarmory/GoSBI-nezha/internal/hart"
)

// flattened device tree header
const (
	FDT_MAGIC       = 0xd00dfeed
	FDT_HEADER_SIZE = 40

	// 8-byte alignment is required for the memory reservation block
	fdtAlign = 8
)

// CheckDeviceTree validates a flattened device tree header and returns the
// blob size it declares.
func CheckDeviceTree(buf []byte) (size int, err error) {
	if len(buf) < FDT_HEADER_SIZE {
		return 0, errors.New("device tree header truncated")
	}

	if magic := binary.BigEndian.Uint32(buf[0:4]); magic != FDT_MAGIC {
		return 0, fmt.Errorf("invalid device tree magic %#x", magic)
	}

	total := binary.BigEndian.Uint32(buf[4:8])

	if total < FDT_HEADER_SIZE || uint64(total) > uint64(len(buf)) {
		return 0, fmt.Errorf("invalid device tree size %d (%d available)", total, len(buf))
	}

	return int(total), nil
}

// LoadDeviceTree stages blob in the firmware arena on behalf of hart id,
// validates the staged copy and hands it to write. The staging buffer is
// released once write returns.
func (fw *Firmware) LoadDeviceTree(id hart.ID, blob []byte, max int, write func(buf []byte)) (err error) {
	if len(blob) == 0 || len(blob) > max {
		return fmt.Errorf("invalid device tree size %d", len(blob))
	}

	addr, buf, err := fw.Arena.Reserve(id, len(blob), fdtAlign)

	if err != nil {
		return
	}

	defer fw.Arena.Release(addr)

	copy(buf, blob)

	size, err := CheckDeviceTree(buf[:len(blob)])

	if err != nil {
		return
	}

	write(buf[:size])

	return
}
