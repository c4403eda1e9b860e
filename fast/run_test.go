// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package fast_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/s48/regalloc/checker"
	"github.com/s48/regalloc/fast"
	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/textfunc"
)

var (
	v0 = regalloc.MakeVReg(0, regalloc.Int)
	v1 = regalloc.MakeVReg(1, regalloc.Int)
	v2 = regalloc.MakeVReg(2, regalloc.Int)
	v3 = regalloc.MakeVReg(3, regalloc.Int)
	p0 = regalloc.MakePReg(0, regalloc.Int)
	p1 = regalloc.MakePReg(1, regalloc.Int)
)

func allocate(t *testing.T, f regalloc.FunctionT, machine *regalloc.MachineEnvT) *regalloc.OutputT {
	t.Helper()
	out, err := fast.Run(f, machine, fast.OptionsT{ValidateSSA: true})
	assert.NilError(t, err)
	assert.NilError(t, checker.Check(f, machine, out))
	return out
}

func parse(t *testing.T, text string) *textfunc.FuncT {
	t.Helper()
	f, err := textfunc.ParseFunc(text)
	assert.NilError(t, err)
	return f
}

func editStrings(out *regalloc.OutputT) []string {
	result := []string{}
	for _, edit := range out.Edits {
		result = append(result, edit.String())
	}
	return result
}

func allocStrings(f regalloc.FunctionT, out *regalloc.OutputT, inst regalloc.InstT) []string {
	result := []string{}
	for _, alloc := range out.InstAllocs(f, inst) {
		result = append(result, alloc.String())
	}
	return result
}

func TestSpillAndReloadWithOneRegister(t *testing.T) {
	f := parse(t, `
(function spill
  (block b0
    (inst (def v0 reg))
    (inst (use v0 reg))
    (inst (def v1 reg))
    (inst (use v1 reg))
    (inst (use v0 reg))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(1))
	assert.Check(t, is.DeepEqual(editStrings(out), []string{
		"@2.b move p0 -> s0",
		"@4.b move s0 -> p0",
	}))
	assert.Check(t, is.Equal(out.NumSpillSlots, 1))
	for i := 0; i < f.NumInsts(); i++ {
		assert.Check(t, is.DeepEqual(allocStrings(f, out, regalloc.InstT(i)), []string{"p0"}))
	}
	assert.Check(t, is.Equal(out.Stats.Stores, 1))
	assert.Check(t, is.Equal(out.Stats.Reloads, 1))
	assert.Check(t, is.Equal(out.Stats.Evictions, 1))
	assert.Check(t, is.Equal(out.Stats.FrameBytes, 4))
}

func TestFixedUseAlreadyInPlace(t *testing.T) {
	b := textfunc.NewBuilder("fixed")
	b.Inst(regalloc.FixedDef(v2, p0))
	b.Inst(regalloc.FixedUse(v2, p0), regalloc.RegDef(v3))
	b.Inst(regalloc.RegUse(v3))
	f := b.MustFinish()

	out := allocate(t, f, regalloc.MakeMachineEnv(2))
	assert.Check(t, is.Len(out.Edits, 0))
	assert.Check(t, is.DeepEqual(allocStrings(f, out, 1), []string{"p0", "p1"}))

	_, err := fast.Run(f, regalloc.MakeMachineEnv(1), fast.OptionsT{})
	assert.Check(t, regalloc.IsKind(err, regalloc.OutOfRegisters), "got %v", err)
}

func TestReuseTakesSourceRegister(t *testing.T) {
	f := parse(t, `
(function reuse
  (block b0
    (inst (def v4 reg))
    (inst (use v4 reg) (def v5 reuse 0))
    (inst (use v5 reg))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(1))
	assert.Check(t, is.DeepEqual(allocStrings(f, out, 1), []string{"p0", "p0"}))
	assert.Check(t, is.Len(out.Edits, 0))
	assert.Check(t, is.Equal(out.NumSpillSlots, 0))
}

// The source of the reuse is still live, so it has to be saved.

func TestReuseOfLiveSource(t *testing.T) {
	f := parse(t, `
(function reuse
  (block b0
    (inst (def v0 reg))
    (inst (use v0 reg) (def v1 reuse 0))
    (inst (use v1 reg) (use v0 reg))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(2))
	assert.Check(t, is.DeepEqual(allocStrings(f, out, 1), []string{"p0", "p0"}))
	assert.Check(t, is.DeepEqual(editStrings(out), []string{
		"@1.b move p0 -> s0",
		"@2.b move s0 -> p1",
	}))
}

func TestStackUseNeedsNoEdits(t *testing.T) {
	f := parse(t, `
(function stack
  (block b0
    (inst (def v6 stack))
    (inst (use v6 stack))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(1))
	assert.Check(t, is.Len(out.Edits, 0))
	assert.Check(t, is.DeepEqual(allocStrings(f, out, 1), []string{"s0"}))
	assert.Check(t, is.Equal(out.Stats.StackOperands, 2))

	// If the value is in a register it is stored first.
	f = parse(t, `
(function stack
  (block b0
    (inst (def v6 reg))
    (inst (use v6 stack))))`)
	out = allocate(t, f, regalloc.MakeMachineEnv(1))
	assert.Check(t, is.DeepEqual(editStrings(out), []string{"@1.b move p0 -> s0"}))
}

func TestConflictingFixedRegisters(t *testing.T) {
	b := textfunc.NewBuilder("conflict")
	b.Inst(regalloc.RegDef(v0))
	b.Inst(regalloc.RegDef(v1))
	b.Inst(regalloc.FixedUse(v0, p0), regalloc.FixedUse(v1, p0))
	_, err := fast.Run(b.MustFinish(), regalloc.MakeMachineEnv(2), fast.OptionsT{})
	assert.Check(t, regalloc.IsKind(err, regalloc.ConflictingFixedRegisters), "got %v", err)
}

// A fixed use and a fixed def can share a register.

func TestFixedUseAndDefShareRegister(t *testing.T) {
	b := textfunc.NewBuilder("share")
	b.Inst(regalloc.RegDef(v0))
	b.Inst(regalloc.FixedUse(v0, p1), regalloc.FixedDef(v1, p1))
	b.Inst(regalloc.RegUse(v1))
	f := b.MustFinish()
	out := allocate(t, f, regalloc.MakeMachineEnv(2))
	assert.Check(t, is.DeepEqual(editStrings(out), []string{"@1.b move p0 -> p1"}))
	assert.Check(t, is.DeepEqual(allocStrings(f, out, 1), []string{"p1", "p1"}))
}

func TestFixedRegisterNotInMachine(t *testing.T) {
	b := textfunc.NewBuilder("missing")
	b.Inst(regalloc.FixedDef(v0, regalloc.MakePReg(5, regalloc.Int)))
	_, err := fast.Run(b.MustFinish(), regalloc.MakeMachineEnv(2), fast.OptionsT{})
	assert.Check(t, regalloc.IsKind(err, regalloc.OutOfRegisters), "got %v", err)
}

func TestInvalidReuse(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"use", `(function f (block b0 (inst (def v0 reg)) (inst (use v0 reuse 0))))`},
		{"range", `(function f (block b0 (inst (def v0 reg)) (inst (use v0 reg) (def v1 reuse 3))))`},
		{"def", `(function f (block b0 (inst (def v0 reg) (def v1 reuse 0))))`},
		{"stack", `(function f (block b0 (inst (def v0 reg)) (inst (use v0 stack) (def v1 reuse 0))))`},
		{"class", `(function f (block b0 (inst (def v0 reg)) (inst (use v0 reg) (def v1:float reuse 0))))`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fast.Run(parse(t, tc.text), regalloc.MakeMachineEnv(2, 2), fast.OptionsT{})
			assert.Check(t, regalloc.IsKind(err, regalloc.InvalidReuseConstraint), "got %v", err)
		})
	}
}

func TestSSAViolations(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"undefined", `(function f (block b0 (inst (def v0 reg)) (inst (use v1 reg))))`},
		{"twice", `(function f (block b0 (inst (def v0 reg)) (inst (def v0 reg))))`},
		{"early", `(function f (block b0 (inst (def v1 reg)) (inst (use v0 reg)) (inst (def v0 reg))))`},
		{"class", `(function f (block b0 (inst (def v0 reg)) (inst (use v0:float reg))))`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fast.Run(parse(t, tc.text), regalloc.MakeMachineEnv(2, 2), fast.OptionsT{})
			assert.Check(t, regalloc.IsKind(err, regalloc.SSAInvariantViolation), "got %v", err)
		})
	}
}

func TestInvalidCFG(t *testing.T) {
	f := parse(t, `
(function f
  (block b0 (inst (def v0 reg)))
  (block b1 (inst (use v0 reg))))`)
	_, err := fast.Run(f, regalloc.MakeMachineEnv(1), fast.OptionsT{})
	assert.Check(t, regalloc.IsKind(err, regalloc.InvalidCFG), "got %v", err)
}

// Values used in other blocks are stored right after their
// definitions and reloaded where they are used.

func TestCrossBlockValues(t *testing.T) {
	f := parse(t, `
(function cross
  (block b0 (succs b1 b2)
    (inst (def v0 reg))
    (inst (def v1 reg)))
  (block b1 (succs b3)
    (inst (use v0 reg)))
  (block b2 (succs b3)
    (inst (use v1 reg)))
  (block b3
    (inst (use v0 reg) (use v1 reg))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(2))
	assert.Check(t, is.DeepEqual(editStrings(out), []string{
		"@0.a move p0 -> s0",
		"@1.a move p0 -> s4",
		"@2.b move s0 -> p0",
		"@3.b move s4 -> p0",
		"@4.b move s0 -> p0",
		"@4.b move s4 -> p1",
	}))
	assert.Check(t, is.Equal(out.NumSpillSlots, 2))
}

func TestEditsInLoops(t *testing.T) {
	f := parse(t, `
(function loop
  (block b0 (succs b1)
    (inst (def v0 reg)))
  (block b1 (succs b1 b2)
    (inst (use v0 reg)))
  (block b2
    (inst (use v0 reg))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(1))
	assert.Check(t, is.Equal(out.Stats.EditsInLoops, 1))
	assert.Check(t, is.Equal(out.Stats.Blocks, 3))
}

// When every register is pinned an Any operand goes to its slot.

func TestAnyFallsBackToStack(t *testing.T) {
	b := textfunc.NewBuilder("fallback")
	b.Inst(regalloc.RegDef(v0))
	b.Inst(regalloc.RegDef(v1))
	b.Inst(regalloc.FixedUse(v0, p0), regalloc.AnyUse(v1), regalloc.AnyDef(v2))
	b.Inst(regalloc.RegUse(v2))
	f := b.MustFinish()
	out := allocate(t, f, regalloc.MakeMachineEnv(1))
	assert.Check(t, is.DeepEqual(allocStrings(f, out, 2), []string{"p0", "s4", "s8"}))
}

func TestDeadValuesAreNotStored(t *testing.T) {
	f := parse(t, `
(function dead
  (block b0
    (inst (def v0 reg))
    (inst (def v1 reg))
    (inst (use v1 reg))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(1))
	assert.Check(t, is.Len(out.Edits, 0))
	assert.Check(t, is.Equal(out.NumSpillSlots, 0))
}

func TestInstAllocOffsetsFollowVisitOrder(t *testing.T) {
	f := parse(t, `
(function order
  (block b0 (succs b1)
    (inst (def v0 reg)))
  (block b1
    (inst (use v0 reg) (def v1 reg))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(2))
	// b1 comes first in postorder.
	assert.Check(t, is.DeepEqual(out.InstAllocOffsets, []int{2, 0}))
	assert.Check(t, is.Len(out.Allocs, 3))
	assert.Check(t, is.Len(out.SafepointSlots, 0))
	assert.Check(t, is.Len(out.DebugLocations, 0))
}

func TestFormatOutput(t *testing.T) {
	f := parse(t, `
(function spill
  (block b0
    (inst (def v0 reg))
    (inst (def v1 reg))
    (inst (use v1 reg) (use v0 any))))`)
	out := allocate(t, f, regalloc.MakeMachineEnv(1))
	want := `0: def v0 = p0
@1.b move p0 -> s0
1: def v1 = p0
2: use v1 = p0, use v0 = s0
spillslots 1
`
	got := textfunc.FormatOutput(f, out)
	assert.Check(t, got == want, cmp.Diff(want, got))
}

func TestAnnotateAndDebugLogging(t *testing.T) {
	f := parse(t, `
(function spill
  (block b0
    (inst (def v0 reg))
    (inst (use v0 reg))
    (inst (def v1 reg))
    (inst (use v1 reg))
    (inst (use v0 reg))))`)
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts := fast.OptionsT{Logger: logrus.NewEntry(logger), Annotate: true}
	_, err := fast.Run(f, regalloc.MakeMachineEnv(1), opts)
	assert.NilError(t, err)

	annotations := []string{}
	edits := []string{}
	for _, entry := range hook.AllEntries() {
		switch entry.Message {
		case "allocated":
			assert.Check(t, is.Equal(entry.Level, logrus.InfoLevel))
			annotations = append(annotations, fmt.Sprint(entry.Data["op0"]))
		case "edit":
			assert.Check(t, is.Equal(entry.Level, logrus.DebugLevel))
			edits = append(edits, fmt.Sprintf("%v %v -> %v", entry.Data["point"], entry.Data["from"], entry.Data["to"]))
		}
	}
	assert.Check(t, is.DeepEqual(annotations, []string{
		"def v0 reg = p0",
		"use v0 reg = p0",
		"def v1 reg = p0",
		"use v1 reg = p0",
		"use v0 reg = p0",
	}))
	assert.Check(t, is.DeepEqual(edits, []string{"2.b p0 -> s0", "4.b s0 -> p0"}))

	hook.Reset()
	logger.SetLevel(logrus.InfoLevel)
	_, err = fast.Run(f, regalloc.MakeMachineEnv(1), fast.OptionsT{Logger: logrus.NewEntry(logger)})
	assert.NilError(t, err)
	assert.Check(t, is.Len(hook.AllEntries(), 0))
}
