// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Checks the output of a register allocator by simulating what it
// does to the machine.  The state at each point is the set of
// (location, vreg) pairs known to hold: register or spill slot
// 'location' contains the value of 'vreg'.  Edits and defs update
// the state and every use must find its vreg in the location it was
// allocated.  At block entries the states of the predecessors are
// intersected, iterating until nothing changes.

package checker

import (
	"github.com/pkg/errors"

	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/util"
)

type factT struct {
	loc  regalloc.AllocationT
	vreg regalloc.VRegT
}

type stateT = util.SetT[factT]

type checkerT struct {
	f       regalloc.FunctionT
	machine *regalloc.MachineEnvT
	out     *regalloc.OutputT
	cfg     *regalloc.CFGInfoT
	edits   map[regalloc.ProgPointT][]regalloc.EditT
	exits   []stateT // nil until the block has been simulated
}

func Check(f regalloc.FunctionT, machine *regalloc.MachineEnvT, out *regalloc.OutputT) error {
	cfg, err := regalloc.NewCFGInfo(f)
	if err != nil {
		return err
	}
	if len(out.InstAllocOffsets) != f.NumInsts() {
		return errors.Errorf("output has allocations for %d instructions, function has %d",
			len(out.InstAllocOffsets), f.NumInsts())
	}
	c := &checkerT{
		f:       f,
		machine: machine,
		out:     out,
		cfg:     cfg,
		edits:   map[regalloc.ProgPointT][]regalloc.EditT{},
		exits:   make([]stateT, f.NumBlocks()),
	}
	for i, edit := range out.Edits {
		if 0 < i && edit.Point < out.Edits[i-1].Point {
			return errors.Errorf("edit %d at %s is out of order", i, edit.Point)
		}
		c.edits[edit.Point] = append(c.edits[edit.Point], edit.Edit)
	}
	for i := 0; i < f.NumInsts(); i++ {
		if err := c.checkConstraints(regalloc.InstT(i)); err != nil {
			return err
		}
	}

	// Reverse postorder, so that every block but the entry has at
	// least one predecessor done before it.
	order := make([]regalloc.BlockT, len(cfg.Postorder))
	for i, block := range cfg.Postorder {
		order[len(order)-1-i] = block
	}
	for changed := true; changed; {
		changed = false
		for _, block := range order {
			exit, _ := c.simulate(block, c.entryState(block), false)
			if c.exits[block] == nil || !exit.Equal(c.exits[block]) {
				c.exits[block] = exit
				changed = true
			}
		}
	}
	for _, block := range order {
		if _, err := c.simulate(block, c.entryState(block), true); err != nil {
			return err
		}
	}
	return nil
}

func (c *checkerT) entryState(block regalloc.BlockT) stateT {
	var state stateT
	if block == c.f.EntryBlock() {
		return util.NewSet[factT]()
	}
	for _, pred := range c.f.BlockPreds(block) {
		exit := c.exits[pred]
		switch {
		case exit == nil:
		case state == nil:
			state = exit.Copy()
		default:
			state = state.Intersection(exit)
		}
	}
	if state == nil {
		state = util.NewSet[factT]()
	}
	return state
}

// Runs 'block' forward from 'state'.  With 'check' set every use is
// checked against the state.

func (c *checkerT) simulate(block regalloc.BlockT, state stateT, check bool) (stateT, error) {
	insts := c.f.BlockInsts(block)
	for inst := insts.First; inst <= insts.Last; inst++ {
		c.applyEdits(regalloc.BeforeInst(inst), state)
		ops := c.f.InstOperands(inst)
		allocs := c.out.InstAllocs(c.f, inst)
		if check {
			for i, op := range ops {
				if op.Kind() == regalloc.Use && !state.Contains(factT{allocs[i], op.VReg()}) {
					return nil, errors.Errorf("inst %d: operand %d (%s) expects %s in %s; %s",
						inst, i, op, op.VReg(), allocs[i], describe(state, allocs[i]))
				}
			}
		}
		for i, op := range ops {
			if op.Kind() == regalloc.Def {
				vreg := op.VReg()
				state.RemoveIf(func(fact factT) bool { return fact.vreg == vreg || fact.loc == allocs[i] })
				state.Add(factT{allocs[i], vreg})
			}
		}
		c.applyEdits(regalloc.AfterInst(inst), state)
	}
	return state, nil
}

func (c *checkerT) applyEdits(point regalloc.ProgPointT, state stateT) {
	for _, edit := range c.edits[point] {
		var moved []regalloc.VRegT
		for fact := range state {
			if fact.loc == edit.From {
				moved = append(moved, fact.vreg)
			}
		}
		state.RemoveIf(func(fact factT) bool { return fact.loc == edit.To })
		for _, vreg := range moved {
			state.Add(factT{edit.To, vreg})
		}
	}
}

func describe(state stateT, loc regalloc.AllocationT) string {
	for fact := range state {
		if fact.loc == loc {
			return "it holds " + fact.vreg.String()
		}
	}
	return "it holds nothing known"
}

// Each operand's allocation must meet its constraint.

func (c *checkerT) checkConstraints(inst regalloc.InstT) error {
	ops := c.f.InstOperands(inst)
	allocs := c.out.InstAllocs(c.f, inst)
	for i, op := range ops {
		alloc := allocs[i]
		fail := func(what string) error {
			return errors.Errorf("inst %d: operand %d (%s) is in %s, %s", inst, i, op, alloc, what)
		}
		if preg, isReg := alloc.AsReg(); isReg {
			if preg.Class() != op.Class() || !c.machine.Contains(preg) {
				return fail("which is not an allocatable " + op.Class().String() + " register")
			}
		}
		constraint := op.Constraint()
		switch constraint.Kind {
		case regalloc.Any:
			if alloc.IsNone() {
				return fail("which is no location")
			}
		case regalloc.Reg:
			if !alloc.IsReg() {
				return fail("not a register")
			}
		case regalloc.Stack:
			if !alloc.IsStack() {
				return fail("not a spill slot")
			}
		case regalloc.FixedReg:
			if alloc != regalloc.RegAlloc(constraint.PReg) {
				return fail("not " + constraint.PReg.String())
			}
		case regalloc.Reuse:
			index := constraint.Index
			if index < 0 || len(allocs) <= index || alloc != allocs[index] {
				return fail("not the location of the operand it reuses")
			}
		}
	}
	return nil
}
