// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"bytes"
	"runtime"
	"sync"

	"github.com/usbarmory/GoSBI-nezha/internal/platform"
)

// ResetRequest represents a logged system reset request.
type ResetRequest struct {
	Type   platform.ResetType
	Reason platform.ResetReason
}

// Reset represents a simulated reset controller.
type Reset struct {
	sync.Mutex

	// Err, if not nil, is returned to every request.
	Err error
	// Exit terminates the calling goroutine on a successful request,
	// matching hardware where a reset never returns.
	Exit bool

	requests []ResetRequest
}

// SystemReset implements platform.Reset.
func (r *Reset) SystemReset(t platform.ResetType, reason platform.ResetReason) error {
	r.Lock()
	r.requests = append(r.requests, ResetRequest{t, reason})
	err := r.Err
	r.Unlock()

	if err == nil && r.Exit {
		runtime.Goexit()
	}

	return err
}

// Requests returns all reset requests received so far.
func (r *Reset) Requests() []ResetRequest {
	r.Lock()
	defer r.Unlock()

	return append([]ResetRequest(nil), r.requests...)
}

// Console represents a simulated supervisor console.
type Console struct {
	sync.Mutex

	// Input holds characters returned by Getchar.
	Input []byte

	out bytes.Buffer
}

// Putchar implements sbi.Console.
func (c *Console) Putchar(b byte) {
	c.Lock()
	defer c.Unlock()

	c.out.WriteByte(b)
}

// Getchar implements sbi.Console.
func (c *Console) Getchar() (b byte, ok bool) {
	c.Lock()
	defer c.Unlock()

	if len(c.Input) == 0 {
		return
	}

	b = c.Input[0]
	c.Input = c.Input[1:]

	return b, true
}

// Output returns all characters written by the supervisor.
func (c *Console) Output() string {
	c.Lock()
	defer c.Unlock()

	return c.out.String()
}
