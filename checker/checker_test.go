// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package checker_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/s48/regalloc/checker"
	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/textfunc"
)

var (
	v0 = regalloc.MakeVReg(0, regalloc.Int)
	v1 = regalloc.MakeVReg(1, regalloc.Int)
	p0 = regalloc.RegAlloc(regalloc.MakePReg(0, regalloc.Int))
	p1 = regalloc.RegAlloc(regalloc.MakePReg(1, regalloc.Int))
	s0 = regalloc.StackAlloc(0)
)

// One allocation per operand, with each instruction's operands in
// order.

func makeOutput(f regalloc.FunctionT, allocs []regalloc.AllocationT, edits ...regalloc.PointEditT) *regalloc.OutputT {
	out := &regalloc.OutputT{Allocs: allocs, Edits: edits}
	offset := 0
	for i := 0; i < f.NumInsts(); i++ {
		out.InstAllocOffsets = append(out.InstAllocOffsets, offset)
		offset += len(f.InstOperands(regalloc.InstT(i)))
	}
	return out
}

func move(point regalloc.ProgPointT, from regalloc.AllocationT, to regalloc.AllocationT) regalloc.PointEditT {
	return regalloc.PointEditT{Point: point, Edit: regalloc.MakeMove(from, to)}
}

// v0 = ...; v1 = ...; use v1; use v0, in one register.

func spillFunc() *textfunc.FuncT {
	b := textfunc.NewBuilder("spill")
	b.Inst(regalloc.RegDef(v0))
	b.Inst(regalloc.RegDef(v1))
	b.Inst(regalloc.RegUse(v1))
	b.Inst(regalloc.RegUse(v0))
	return b.MustFinish()
}

func TestAcceptsCorrectOutput(t *testing.T) {
	f := spillFunc()
	out := makeOutput(f, []regalloc.AllocationT{p0, p0, p0, p0},
		move(regalloc.BeforeInst(1), p0, s0),
		move(regalloc.BeforeInst(3), s0, p0))
	assert.NilError(t, checker.Check(f, regalloc.MakeMachineEnv(1), out))
}

func TestMissingReload(t *testing.T) {
	f := spillFunc()
	out := makeOutput(f, []regalloc.AllocationT{p0, p0, p0, p0},
		move(regalloc.BeforeInst(1), p0, s0))
	assert.ErrorContains(t, checker.Check(f, regalloc.MakeMachineEnv(1), out), "expects v0 in p0; it holds v1")
}

func TestMissingStore(t *testing.T) {
	f := spillFunc()
	out := makeOutput(f, []regalloc.AllocationT{p0, p0, p0, p0},
		move(regalloc.BeforeInst(3), s0, p0))
	assert.ErrorContains(t, checker.Check(f, regalloc.MakeMachineEnv(1), out), "inst 3")
}

func TestClobberedByEdit(t *testing.T) {
	f := spillFunc()
	out := makeOutput(f, []regalloc.AllocationT{p0, p1, p1, p0},
		move(regalloc.AfterInst(1), p1, p0))
	assert.ErrorContains(t, checker.Check(f, regalloc.MakeMachineEnv(2), out), "inst 3")
}

func TestConstraintViolations(t *testing.T) {
	b := textfunc.NewBuilder("constraints")
	b.Inst(regalloc.FixedDef(v0, regalloc.MakePReg(1, regalloc.Int)))
	b.Inst(regalloc.StackUse(v0))
	f := b.MustFinish()
	machine := regalloc.MakeMachineEnv(2)

	err := checker.Check(f, machine, makeOutput(f, []regalloc.AllocationT{p0, s0}))
	assert.ErrorContains(t, err, "not p1")

	err = checker.Check(f, machine, makeOutput(f, []regalloc.AllocationT{p1, p1}))
	assert.ErrorContains(t, err, "not a spill slot")

	p5 := regalloc.RegAlloc(regalloc.MakePReg(5, regalloc.Int))
	err = checker.Check(f, machine, makeOutput(f, []regalloc.AllocationT{p5, s0}))
	assert.ErrorContains(t, err, "not an allocatable int register")

	err = checker.Check(f, machine, makeOutput(f, []regalloc.AllocationT{p1, s0},
		move(regalloc.AfterInst(0), p1, s0)))
	assert.NilError(t, err)
}

func TestReuseMustMatch(t *testing.T) {
	b := textfunc.NewBuilder("reuse")
	b.Inst(regalloc.RegDef(v0))
	b.Inst(regalloc.RegUse(v0), regalloc.ReuseDef(v1, 0))
	f := b.MustFinish()
	machine := regalloc.MakeMachineEnv(2)
	assert.NilError(t, checker.Check(f, machine, makeOutput(f, []regalloc.AllocationT{p0, p0, p0})))
	err := checker.Check(f, machine, makeOutput(f, []regalloc.AllocationT{p0, p0, p1}))
	assert.ErrorContains(t, err, "operand it reuses")
}

// v0 is reloaded on only one of the two paths to the join.

func TestJoinNeedsValueOnAllPaths(t *testing.T) {
	f, err := textfunc.ParseFunc(`
(function join
  (block b0 (succs b1 b2)
    (inst (def v0 reg)))
  (block b1 (succs b3)
    (inst (use v0 reg)))
  (block b2 (succs b3)
    (inst (def v1 reg)))
  (block b3
    (inst (use v0 reg))))`)
	assert.NilError(t, err)
	machine := regalloc.MakeMachineEnv(1)
	good := makeOutput(f, []regalloc.AllocationT{p0, p0, p0, p0},
		move(regalloc.AfterInst(0), p0, s0),
		move(regalloc.BeforeInst(3), s0, p0))
	assert.NilError(t, checker.Check(f, machine, good))

	bad := makeOutput(f, []regalloc.AllocationT{p0, p0, p0, p0})
	assert.ErrorContains(t, checker.Check(f, machine, bad), "inst 3")
}

// A value kept in a register around a loop, with the loop body
// overwriting that register.

func TestLoopClobber(t *testing.T) {
	f, err := textfunc.ParseFunc(`
(function loop
  (block b0 (succs b1)
    (inst (def v0 reg)))
  (block b1 (succs b1 b2)
    (inst (use v0 reg))
    (inst (def v1 reg)))
  (block b2
    (inst (use v0 reg))))`)
	assert.NilError(t, err)
	machine := regalloc.MakeMachineEnv(2)
	good := makeOutput(f, []regalloc.AllocationT{p0, p0, p1, p0})
	assert.NilError(t, checker.Check(f, machine, good))

	bad := makeOutput(f, []regalloc.AllocationT{p0, p0, p0, p0})
	assert.ErrorContains(t, checker.Check(f, machine, bad), "inst 1")
}

func TestEditsOutOfOrder(t *testing.T) {
	f := spillFunc()
	out := makeOutput(f, []regalloc.AllocationT{p0, p0, p0, p0},
		move(regalloc.BeforeInst(3), s0, p0),
		move(regalloc.BeforeInst(1), p0, s0))
	assert.ErrorContains(t, checker.Check(f, regalloc.MakeMachineEnv(1), out), "out of order")
}
