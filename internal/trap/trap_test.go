// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trap_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/usbarmory/GoSBI-nezha/internal/csr"
	"github.com/usbarmory/GoSBI-nezha/internal/hart"
	"github.com/usbarmory/GoSBI-nezha/internal/sim"
	"github.com/usbarmory/GoSBI-nezha/internal/trap"
)

// instruction encodings
const (
	rdtimeA0   = 0xc0102573 // csrrs a0, time, x0
	rdtimehA1  = 0xc81025f3 // csrrs a1, timeh, x0
	rdtimeZero = 0xc0102073 // csrrs x0, time, x0
	csrrsA1    = 0xc015a573 // csrrs a0, time, a1
	rdcycleA0  = 0xc0002573 // csrrs a0, cycle, x0
)

const (
	supervisorPC = 0x40201000
	vector       = 0x40200100
)

type failer struct {
	errs []error
}

func (f *failer) Fatal(_ hart.ID, err error) {
	f.errs = append(f.errs, err)
}

type interrupts struct {
	soft  []hart.ID
	timer []hart.ID
}

func (i *interrupts) ClearSoft(id hart.ID) {
	i.soft = append(i.soft, id)
}

func (i *interrupts) ClearTimer(id hart.ID) {
	i.timer = append(i.timer, id)
}

type caller struct {
	calls int
}

func (c *caller) Call(h *hart.Hart) trap.Action {
	c.calls += 1
	return trap.Resume
}

type fixedTimer uint64

func (t fixedTimer) Time() uint64 {
	return uint64(t)
}

type fixture struct {
	hart       *hart.Hart
	csr        *sim.CSR
	failer     *failer
	interrupts *interrupts
	caller     *caller
	dispatcher *trap.Dispatcher
}

func newFixture(timer trap.Timer) *fixture {
	c := sim.NewCSR(0)

	f := &fixture{
		hart:       &hart.Hart{ID: 0, CSR: c},
		csr:        c,
		failer:     &failer{},
		interrupts: &interrupts{},
		caller:     &caller{},
	}

	f.dispatcher = &trap.Dispatcher{
		Timer:      timer,
		Interrupts: f.interrupts,
		Calls:      f.caller,
		Fatal:      f.failer,
	}

	for i := range f.hart.Context.X {
		f.hart.Context.SetReg(i, uint64(0x1000+i))
	}

	f.hart.Context.PC = supervisorPC

	return f
}

func (f *fixture) record(cause trap.Cause, value uint64, origin csr.Privilege) *trap.Record {
	r := &trap.Record{
		Cause:   cause,
		Value:   value,
		Origin:  origin,
		PC:      supervisorPC,
		Context: &f.hart.Context,
	}

	if cause == trap.IllegalInstruction {
		r.Instruction = uint32(value)
	}

	return r
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name   string
		cause  trap.Cause
		inst   uint32
		origin csr.Privilege
		xlen   int
		want   trap.Class
	}{
		{"msi", trap.MachineSoftInterrupt, 0, csr.Supervisor, 64, trap.Forward},
		{"mti", trap.MachineTimerInterrupt, 0, csr.User, 64, trap.Forward},
		{"ecall", trap.SupervisorEcall, 0, csr.Supervisor, 64, trap.Call},
		{"rdtime", trap.IllegalInstruction, rdtimeA0, csr.Supervisor, 64, trap.TimerRead},
		{"rdtimeh rv32", trap.IllegalInstruction, rdtimehA1, csr.User, 32, trap.TimerRead},
		{"rdtimeh rv64", trap.IllegalInstruction, rdtimehA1, csr.Supervisor, 64, trap.Transfer},
		{"rdtimeh default width", trap.IllegalInstruction, rdtimehA1, csr.Supervisor, 0, trap.Transfer},
		{"csrrs with source", trap.IllegalInstruction, csrrsA1, csr.Supervisor, 64, trap.Transfer},
		{"rdcycle", trap.IllegalInstruction, rdcycleA0, csr.Supervisor, 64, trap.Transfer},
		{"unknown instruction", trap.IllegalInstruction, 0xffffffff, csr.Supervisor, 64, trap.Transfer},
		{"load access", trap.LoadAccessFault, 0, csr.Supervisor, 64, trap.Transfer},
		{"store misaligned", trap.StoreMisaligned, 0, csr.User, 64, trap.Transfer},
		{"fetch access", trap.InstructionAccessFault, 0, csr.Supervisor, 64, trap.Transfer},
		{"load page fault", trap.LoadPageFault, 0, csr.Supervisor, 64, trap.PageFault},
		{"store page fault", trap.StorePageFault, 0, csr.User, 64, trap.PageFault},
		{"fetch page fault", trap.InstructionPageFault, 0, csr.Supervisor, 64, trap.PageFault},
		{"breakpoint", trap.Breakpoint, 0, csr.Supervisor, 64, trap.Unhandled},
		{"machine ecall", trap.MachineEcall, 0, csr.Supervisor, 64, trap.Unhandled},
		{"reserved", trap.Cause(10), 0, csr.Supervisor, 64, trap.Unhandled},
		{"machine origin", trap.SupervisorEcall, 0, csr.Machine, 64, trap.Unhandled},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := &trap.Record{Cause: tc.cause, Instruction: tc.inst, Origin: tc.origin}

			if got := trap.Classify(r, tc.xlen); got != tc.want {
				t.Errorf("Classify(%v) = %v, want %v", r, got, tc.want)
			}
		})
	}
}

func TestRetainedHandled(t *testing.T) {
	for _, c := range trap.Retained {
		if !c.Handled() {
			t.Errorf("retained cause %v has no handler", c)
		}
	}
}

func TestForwardSoftInterrupt(t *testing.T) {
	f := newFixture(fixedTimer(0))
	before := f.hart.Context

	r := f.record(trap.MachineSoftInterrupt, 0, csr.Supervisor)

	if got := f.dispatcher.Dispatch(f.hart, r); got != trap.Resume {
		t.Fatalf("Dispatch() = %v, want %v", got, trap.Resume)
	}

	if diff := cmp.Diff(before, f.hart.Context); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]hart.ID{0}, f.interrupts.soft); diff != "" {
		t.Errorf("cleared soft interrupts mismatch (-want +got):\n%s", diff)
	}

	if f.csr.Read(csr.MIP)&csr.IP_SSIP == 0 {
		t.Errorf("SSIP not raised")
	}
}

func TestForwardTimerInterrupt(t *testing.T) {
	f := newFixture(fixedTimer(0))
	f.csr.Set(csr.MIE, csr.MIE_MTIE|csr.MIE_MSIE)
	before := f.hart.Context

	r := f.record(trap.MachineTimerInterrupt, 0, csr.User)

	if got := f.dispatcher.Dispatch(f.hart, r); got != trap.Resume {
		t.Fatalf("Dispatch() = %v, want %v", got, trap.Resume)
	}

	if diff := cmp.Diff(before, f.hart.Context); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]hart.ID{0}, f.interrupts.timer); diff != "" {
		t.Errorf("cleared timer interrupts mismatch (-want +got):\n%s", diff)
	}

	if got := f.csr.Read(csr.MIE); got != csr.MIE_MSIE {
		t.Errorf("mie = %#x, want %#x", got, csr.MIE_MSIE)
	}

	if f.csr.Read(csr.MIP)&csr.IP_STIP == 0 {
		t.Errorf("STIP not raised")
	}
}

func TestTransfer(t *testing.T) {
	for _, tc := range []struct {
		name   string
		cause  trap.Cause
		value  uint64
		origin csr.Privilege
		sie    bool
	}{
		{"load access from S", trap.LoadAccessFault, 0x7e010000, csr.Supervisor, true},
		{"store access from U", trap.StoreAccessFault, 0x7e000008, csr.User, false},
		{"misaligned load", trap.LoadMisaligned, 0x40300001, csr.Supervisor, false},
		{"illegal instruction", trap.IllegalInstruction, 0xffffffff, csr.User, true},
		{"load page fault", trap.LoadPageFault, 0xffffffc000001000, csr.Supervisor, true},
		{"store page fault", trap.StorePageFault, 0x3fffff000, csr.User, false},
		{"fetch page fault", trap.InstructionPageFault, 0xffffffc000200000, csr.Supervisor, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(fixedTimer(0))
			f.csr.Write(csr.STVEC, vector|1)

			status := csr.WithPreviousPrivilege(csr.MSTATUS_SPP|csr.MSTATUS_SPIE, tc.origin)

			if tc.sie {
				status |= csr.MSTATUS_SIE
			}

			f.csr.Write(csr.MSTATUS, status)

			before := f.hart.Context
			r := f.record(tc.cause, tc.value, tc.origin)

			if got := f.dispatcher.Dispatch(f.hart, r); got != trap.Redirect {
				t.Fatalf("Dispatch() = %v, want %v", got, trap.Redirect)
			}

			want := csr.WithPreviousPrivilege(0, csr.Supervisor)

			if tc.origin == csr.Supervisor {
				want |= csr.MSTATUS_SPP
			}

			if tc.sie {
				want |= csr.MSTATUS_SPIE
			}

			regs := map[csr.Number]uint64{
				csr.SEPC:    supervisorPC,
				csr.SCAUSE:  uint64(tc.cause),
				csr.STVAL:   tc.value,
				csr.MSTATUS: want,
			}

			for n, v := range regs {
				if got := f.csr.Read(n); got != v {
					t.Errorf("csr %#x = %#x, want %#x", n, got, v)
				}
			}

			before.PC = vector
			before.Status = want

			if diff := cmp.Diff(before, f.hart.Context); diff != "" {
				t.Errorf("context mismatch (-want +got):\n%s", diff)
			}

			if len(f.failer.errs) != 0 {
				t.Errorf("unexpected fatal errors %v", f.failer.errs)
			}
		})
	}
}

func TestTransferWithoutVector(t *testing.T) {
	f := newFixture(fixedTimer(0))
	r := f.record(trap.LoadAccessFault, 0x7e000000, csr.Supervisor)

	if got := f.dispatcher.Dispatch(f.hart, r); got != trap.Halt {
		t.Fatalf("Dispatch() = %v, want %v", got, trap.Halt)
	}

	if len(f.failer.errs) != 1 {
		t.Fatalf("expected one fatal error, got %v", f.failer.errs)
	}

	var e *trap.UnhandledError

	if !errors.As(f.failer.errs[0], &e) {
		t.Fatalf("unexpected error type %T", f.failer.errs[0])
	}

	if e.Record.Cause != trap.LoadAccessFault || e.Reason == "" {
		t.Errorf("unexpected error %v", e)
	}

	if n := f.csr.Writes(csr.SEPC); n != 0 {
		t.Errorf("sepc written %d times", n)
	}
}

func TestTimerRead(t *testing.T) {
	timer := &sim.Timer{Step: 1000}
	timer.Advance(0xfffff000)

	f := newFixture(timer)

	var last uint64

	for i := 0; i < 4; i++ {
		r := f.record(trap.IllegalInstruction, rdtimeA0, csr.Supervisor)

		if got := f.dispatcher.Dispatch(f.hart, r); got != trap.Resume {
			t.Fatalf("Dispatch() = %v, want %v", got, trap.Resume)
		}

		got := f.hart.Context.Reg(hart.A0)

		if got < last {
			t.Errorf("time went backwards, %#x < %#x", got, last)
		}

		if f.hart.Context.PC != supervisorPC+4 {
			t.Errorf("pc = %#x, want %#x", f.hart.Context.PC, supervisorPC+4)
		}

		last = got
	}

	if last != timer.Now() {
		t.Errorf("last read %#x, timer %#x", last, timer.Now())
	}
}

func TestTimerReadSplit(t *testing.T) {
	const now = 0x00000001_00000002

	for _, tc := range []struct {
		name   string
		xlen   int
		inst   uint32
		rd     int
		want   uint64
		action trap.Action
	}{
		{"rv64 rdtime", 64, rdtimeA0, hart.A0, now, trap.Resume},
		{"rv32 rdtime", 32, rdtimeA0, hart.A0, 0x2, trap.Resume},
		{"rv32 rdtimeh", 32, rdtimehA1, hart.A1, 0x1, trap.Resume},
		// timeh does not exist on RV64, the supervisor sees the
		// illegal instruction
		{"rv64 rdtimeh", 64, rdtimehA1, hart.A1, 0x1000 + hart.A1, trap.Redirect},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(fixedTimer(now))
			f.dispatcher.XLEN = tc.xlen
			f.csr.Write(csr.STVEC, vector)

			got := f.dispatcher.Dispatch(f.hart, f.record(trap.IllegalInstruction, uint64(tc.inst), csr.Supervisor))

			if got != tc.action {
				t.Fatalf("Dispatch() = %v, want %v", got, tc.action)
			}

			if got := f.hart.Context.Reg(tc.rd); got != tc.want {
				t.Errorf("x%d = %#x, want %#x", tc.rd, got, tc.want)
			}

			if tc.action != trap.Redirect {
				return
			}

			regs := map[csr.Number]uint64{
				csr.SCAUSE: uint64(trap.IllegalInstruction),
				csr.STVAL:  uint64(tc.inst),
				csr.SEPC:   supervisorPC,
			}

			for n, v := range regs {
				if got := f.csr.Read(n); got != v {
					t.Errorf("csr %#x = %#x, want %#x", n, got, v)
				}
			}

			if f.hart.Context.PC != vector {
				t.Errorf("pc = %#x, want %#x", f.hart.Context.PC, uint64(vector))
			}
		})
	}
}

func TestTimerReadZeroRegister(t *testing.T) {
	f := newFixture(fixedTimer(42))

	f.dispatcher.Dispatch(f.hart, f.record(trap.IllegalInstruction, rdtimeZero, csr.Supervisor))

	if got := f.hart.Context.Reg(0); got != 0 {
		t.Errorf("x0 = %#x", got)
	}

	if f.hart.Context.PC != supervisorPC+4 {
		t.Errorf("pc = %#x, want %#x", f.hart.Context.PC, supervisorPC+4)
	}
}

func TestSplit(t *testing.T) {
	lo, hi := trap.Split(0xdeadbeef_cafebabe)

	if lo != 0xcafebabe || hi != 0xdeadbeef {
		t.Errorf("Split() = %#x, %#x", lo, hi)
	}
}

func TestCall(t *testing.T) {
	f := newFixture(fixedTimer(0))

	if got := f.dispatcher.Dispatch(f.hart, f.record(trap.SupervisorEcall, 0, csr.Supervisor)); got != trap.Resume {
		t.Fatalf("Dispatch() = %v, want %v", got, trap.Resume)
	}

	if f.caller.calls != 1 {
		t.Errorf("expected one call, got %d", f.caller.calls)
	}
}

func TestUnhandled(t *testing.T) {
	for _, tc := range []struct {
		name   string
		cause  trap.Cause
		origin csr.Privilege
	}{
		{"breakpoint", trap.Breakpoint, csr.Supervisor},
		{"reserved", trap.Cause(14), csr.User},
		{"machine external", trap.MachineExternalInterrupt, csr.Supervisor},
		{"from machine mode", trap.LoadAccessFault, csr.Machine},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(fixedTimer(0))
			f.csr.Write(csr.STVEC, vector)
			before := f.hart.Context

			if got := f.dispatcher.Dispatch(f.hart, f.record(tc.cause, 0, tc.origin)); got != trap.Halt {
				t.Fatalf("Dispatch() = %v, want %v", got, trap.Halt)
			}

			if len(f.failer.errs) != 1 {
				t.Fatalf("expected one fatal error, got %v", f.failer.errs)
			}

			if diff := cmp.Diff(before, f.hart.Context); diff != "" {
				t.Errorf("context mismatch (-want +got):\n%s", diff)
			}

			if f.caller.calls != 0 {
				t.Errorf("unexpected call")
			}
		})
	}
}

func TestCauseString(t *testing.T) {
	for c, want := range map[trap.Cause]string{
		trap.SupervisorEcall:       "environment call from S-mode",
		trap.MachineTimerInterrupt: "machine timer interrupt",
		trap.Cause(14):             "exception 14",
		trap.Cause(1<<63 | 13):     "interrupt 13",
	} {
		if got := c.String(); got != want {
			t.Errorf("%#x.String() = %q, want %q", uint64(c), got, want)
		}
	}
}
