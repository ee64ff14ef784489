// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/sim"
)

const (
	stackBase = 0x7fb00000
	stackSize = 0x2000
)

func layout(n int) Layout {
	return Layout{
		Base:      stackBase,
		StackSize: stackSize,
		Reserved:  0x100000,
		Harts:     n,
	}
}

func TestStacksDisjoint(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8, 128} {
		l := layout(n)

		if err := l.Check(); err != nil {
			t.Fatalf("%d harts: %v", n, err)
		}

		for i := 0; i < n; i++ {
			bottom, top := l.Stack(hart.ID(i))

			if top-bottom != stackSize || top%16 != 0 {
				t.Errorf("%d harts: hart %d stack [%#x, %#x)", n, i, bottom, top)
			}

			if bottom < l.Base || top > l.Base+l.Reserved {
				t.Errorf("%d harts: hart %d stack outside reservation", n, i)
			}

			for j := 0; j < i; j++ {
				b, tp := l.Stack(hart.ID(j))

				if bottom < tp && b < top {
					t.Errorf("%d harts: hart %d and %d stacks overlap", n, i, j)
				}
			}
		}
	}

	if got := layout(1).StackTop(0); got != stackBase+stackSize {
		t.Errorf("StackTop(0) = %#x", got)
	}
}

func TestAssign(t *testing.T) {
	const n = 4

	l := layout(n)
	tops := make(map[uint64]bool)

	for i := 0; i < n; i++ {
		c := sim.NewCSR(hart.ID(i))
		top := l.Assign(c, hart.ID(i))

		if want := uint64(stackBase + (i+1)*stackSize); top != want {
			t.Errorf("hart %d stack top %#x, want %#x", i, top, want)
		}

		if got := c.Read(csr.MSCRATCH); got != top {
			t.Errorf("hart %d mscratch %#x, want %#x", i, got, top)
		}

		tops[top] = true
	}

	if len(tops) != n {
		t.Errorf("harts share trap stacks: %v", tops)
	}
}

func TestLayoutCheck(t *testing.T) {
	for _, tc := range []struct {
		name string
		l    Layout
	}{
		{"no harts", layout(0)},
		{"too many harts", layout(129)},
		{"misaligned", Layout{Base: stackBase, StackSize: 0x1008, Reserved: 0x100000, Harts: 1}},
		{"no stack", Layout{Base: stackBase, Reserved: 0x100000, Harts: 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.l.Check(); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestGlobalOnce(t *testing.T) {
	const n = 4

	var count atomic.Int32
	var wg sync.WaitGroup

	s := &Sequencer{
		Layout:  layout(n),
		Primary: 0,
		Steps: []Step{
			{"heap", func() error { count.Add(1); return nil }},
			{"plic", func() error { return nil }},
		},
	}

	errs := make([]error, n)
	done := make([]bool, n)

	// secondaries first, they must wait for the primary
	for id := n - 1; id >= 0; id-- {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			errs[id] = s.Boot(hart.ID(id))
			done[id] = s.Done()
		}(id)
	}

	wg.Wait()

	if got := count.Load(); got != 1 {
		t.Errorf("global initialization performed %d times", got)
	}

	for id := 0; id < n; id++ {
		if errs[id] != nil {
			t.Errorf("hart %d: %v", id, errs[id])
		}

		if !done[id] {
			t.Errorf("hart %d returned before global initialization", id)
		}
	}
}

func TestGlobalFailure(t *testing.T) {
	const n = 3

	var wg sync.WaitGroup

	s := &Sequencer{
		Layout:  layout(n),
		Primary: 1,
		Steps: []Step{
			{"heap", func() error { return nil }},
			{"peripherals", func() error { return errors.New("uart timeout") }},
			{"payload", func() error { t.Error("step executed after failure"); return nil }},
		},
	}

	errs := make([]error, n)

	for id := 0; id < n; id++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()
			errs[id] = s.Boot(hart.ID(id))
		}(id)
	}

	wg.Wait()

	if errs[1] == nil || !strings.Contains(errs[1].Error(), "peripherals") {
		t.Errorf("primary error %v", errs[1])
	}

	for _, id := range []int{0, 2} {
		if !errors.Is(errs[id], ErrGlobalInit) {
			t.Errorf("hart %d: %v, want %v", id, errs[id], ErrGlobalInit)
		}
	}

	if s.Done() {
		t.Errorf("failed initialization reported as done")
	}
}

func TestBootInvalid(t *testing.T) {
	s := &Sequencer{Layout: layout(2)}

	if err := s.Boot(2); err == nil {
		t.Errorf("expected error for hart beyond supported count")
	}

	if err := s.Boot(0); err != nil {
		t.Fatal(err)
	}

	if err := s.Boot(0); err == nil {
		t.Errorf("expected error on repeated global initialization")
	}
}
