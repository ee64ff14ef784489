// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pmp programs the static Physical Memory Protection regions which
// confine supervisor mode accesses.
package pmp

import (
	"errors"
	"fmt"
	"log"
	"sort"
)

// Address matching modes (pmpcfg.A)
const (
	OFF   = 0
	TOR   = 1
	NA4   = 2
	NAPOT = 3
)

// Perm represents region access permissions.
type Perm uint8

// Permission bits
const (
	R Perm = 1 << 0
	W Perm = 1 << 1
	X Perm = 1 << 2

	None Perm = 0
	RW        = R | W
	RWX       = R | W | X
)

func (p Perm) String() string {
	s := []byte("---")

	if p&R != 0 {
		s[0] = 'r'
	}

	if p&W != 0 {
		s[1] = 'w'
	}

	if p&X != 0 {
		s[2] = 'x'
	}

	return string(s)
}

// Region represents a physical memory range and the access permissions
// granted to supervisor mode.
type Region struct {
	Name string
	Base uint64
	Size uint64
	Perm Perm
	// Locked regions are enforced on machine mode as well and cannot be
	// reprogrammed until reset.
	Locked bool
}

// End returns the first address after the region.
func (r Region) End() uint64 {
	return r.Base + r.Size
}

func (r Region) String() string {
	l := ""

	if r.Locked {
		l = " locked"
	}

	return fmt.Sprintf("%s [%#.8x-%#.8x) %s%s", r.Name, r.Base, r.End(), r.Perm, l)
}

// Entry represents a single PMP entry as passed to WritePMP.
type Entry struct {
	Index int
	Addr  uint64
	R     bool
	W     bool
	X     bool
	A     int
	L     bool
}

// Writer represents a PMP programming primitive.
type Writer interface {
	WritePMP(i int, addr uint64, r bool, w bool, x bool, a int, l bool) (err error)
}

// Reader represents a PMP inspection primitive.
type Reader interface {
	ReadPMP(i int) (addr uint64, r bool, w bool, x bool, a int, l bool, err error)
}

func sortRegions(regions []Region) []Region {
	sorted := append([]Region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Base < sorted[j].Base })

	return sorted
}

// Validate verifies the region table invariants: every region is non-empty,
// 4-byte aligned and no two regions overlap.
func Validate(regions []Region) (err error) {
	if len(regions) == 0 {
		return errors.New("empty region table")
	}

	sorted := sortRegions(regions)

	for i, r := range sorted {
		if r.Size == 0 {
			return fmt.Errorf("%s: empty region", r.Name)
		}

		if r.Base%4 != 0 || r.Size%4 != 0 {
			return fmt.Errorf("%s: region not 4-byte aligned", r.Name)
		}

		if r.End() < r.Base {
			return fmt.Errorf("%s: region wraps around", r.Name)
		}

		if i > 0 && sorted[i-1].End() > r.Base {
			return fmt.Errorf("%s overlaps %s", r.Name, sorted[i-1].Name)
		}
	}

	return
}

// Covers reports whether the union of regions is exactly [start, end).
func Covers(regions []Region, start uint64, end uint64) bool {
	if len(regions) == 0 {
		return start == end
	}

	addr := start

	for _, r := range sortRegions(regions) {
		if r.Base != addr {
			return false
		}

		addr = r.End()
	}

	return addr == end
}

// Entries encodes regions, in address order, as a top-of-range chain. An OFF
// entry carries the region base whenever it differs from the previous region
// top.
func Entries(regions []Region) (entries []Entry, err error) {
	if err = Validate(regions); err != nil {
		return
	}

	// entry 0 in TOR mode matches from address 0
	var top uint64

	for _, r := range sortRegions(regions) {
		if r.Base != top {
			entries = append(entries, Entry{
				Index: len(entries),
				Addr:  r.Base,
				A:     OFF,
			})
		}

		entries = append(entries, Entry{
			Index: len(entries),
			Addr:  r.End(),
			R:     r.Perm&R != 0,
			W:     r.Perm&W != 0,
			X:     r.Perm&X != 0,
			A:     TOR,
			L:     r.Locked,
		})

		top = r.End()
	}

	return
}

// Configure programs regions through w, max is the number of PMP entries
// implemented by the hart.
func Configure(w Writer, regions []Region, max int) (err error) {
	entries, err := Entries(regions)

	if err != nil {
		return
	}

	if len(entries) > max {
		return fmt.Errorf("%d PMP entries required, %d available", len(entries), max)
	}

	for _, e := range entries {
		if err = w.WritePMP(e.Index, e.Addr, e.R, e.W, e.X, e.A, e.L); err != nil {
			return fmt.Errorf("PMP:%.2d, %v", e.Index, err)
		}
	}

	return
}

// Dump logs the first n PMP entries.
func Dump(r Reader, n int) {
	for i := 0; i < n; i++ {
		addr, rd, wr, x, a, l, err := r.ReadPMP(i)

		if err != nil {
			log.Printf("SBI PMP:%.2d error:%v", i, err)
			continue
		}

		log.Printf("SBI PMP:%.2d addr:%#.16x A:%d R:%v W:%v X:%v l:%v", i, addr, a, rd, wr, x, l)
	}
}
