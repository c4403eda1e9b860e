// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// A fast, single pass register allocator.  Blocks are allocated one
// at a time, in postorder, with nothing kept in registers across
// block boundaries.  There is no liveness analysis.  Instead a quick
// scan over the operands finds the values that are used outside of
// the block that defines them; these are stored to their spill slots
// as soon as they are defined and reloaded wherever else they are
// needed.  Within a block values stay in registers until their last
// use or until the registers are needed for something else.

package fast

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/s48/regalloc/regalloc"
)

func Run(f regalloc.FunctionT, machine *regalloc.MachineEnvT, opts OptionsT) (*regalloc.OutputT, error) {
	cfg, err := regalloc.NewCFGInfo(f)
	if err != nil {
		return nil, err
	}
	if opts.ValidateSSA {
		if err := regalloc.ValidateSSA(f, cfg); err != nil {
			return nil, err
		}
	}
	env := newEnv(f, machine, cfg, opts)
	if err := env.prescan(); err != nil {
		return nil, err
	}
	for _, block := range cfg.Postorder {
		if err := env.allocateBlock(block); err != nil {
			return nil, err
		}
	}
	return env.output(), nil
}

// Finds each vreg's definition and whether it is used in any other
// block.  This also catches the SSA violations that would otherwise
// leave the allocator confused: multiple definitions, uses with no
// definition at all, and uses whose class doesn't match the
// definition's.

func (env *envT) prescan() error {
	numInsts := env.f.NumInsts()
	for i := 0; i < numInsts; i++ {
		inst := regalloc.InstT(i)
		for _, op := range env.f.InstOperands(inst) {
			vreg := op.VReg()
			if vreg.VReg() < 0 || len(env.vregs) <= vreg.VReg() {
				return regalloc.NewError(regalloc.SSAInvariantViolation, inst, vreg,
					"vreg out of range [0, %d)", len(env.vregs))
			}
			if op.Kind() != regalloc.Def {
				continue
			}
			info := env.info(vreg)
			if info.defined {
				return regalloc.NewError(regalloc.SSAInvariantViolation, inst, vreg,
					"already defined at inst %d", info.defInst)
			}
			*info = vregInfoT{
				defined:  true,
				defInst:  inst,
				defBlock: env.cfg.InstBlock[inst],
				class:    vreg.Class(),
			}
		}
	}
	for i := 0; i < numInsts; i++ {
		inst := regalloc.InstT(i)
		for _, op := range env.f.InstOperands(inst) {
			if op.Kind() != regalloc.Use {
				continue
			}
			vreg := op.VReg()
			info := env.info(vreg)
			switch {
			case !info.defined:
				return regalloc.NewError(regalloc.SSAInvariantViolation, inst, vreg, "used but never defined")
			case info.class != vreg.Class():
				return regalloc.NewError(regalloc.SSAInvariantViolation, inst, vreg,
					"used as %s but defined as %s", vreg.Class(), info.class)
			case info.defBlock != env.cfg.InstBlock[inst]:
				info.crossBlock = true
			}
		}
	}
	return nil
}

func (env *envT) allocateBlock(block regalloc.BlockT) error {
	env.block = block
	env.stats.Blocks += 1
	env.lru.reset()
	insts := env.f.BlockInsts(block)
	for inst := insts.First; inst <= insts.Last; inst++ {
		for _, op := range env.f.InstOperands(inst) {
			if op.Kind() == regalloc.Use {
				env.info(op.VReg()).blockUses += 1
			}
		}
	}
	if env.debug {
		env.log.WithFields(logrus.Fields{
			"block": block,
			"entry": env.cfg.BlockEntry[block],
			"exit":  env.cfg.BlockExit[block],
		}).Debug("allocating block")
	}
	exit := env.cfg.BlockExit[block]
	for point := env.cfg.BlockEntry[block]; point < exit; point += 2 {
		if err := env.allocateInst(point.Inst()); err != nil {
			return err
		}
	}
	return nil
}

// Uses are done before defs so that a Reuse def can see where its
// source ended up.  Within each phase the operands with fixed
// registers go first; they can't go anywhere else, while the others
// can work around them.

func (env *envT) allocateInst(inst regalloc.InstT) error {
	ops := env.f.InstOperands(inst)
	start := len(env.allocs)
	env.allocOffset[inst] = start
	env.allocs = append(env.allocs, make([]regalloc.AllocationT, len(ops))...)
	allocs := env.allocs[start:]
	env.stats.Insts += 1
	env.stats.Operands += len(ops)

	fixed, err := env.checkFixed(inst, ops)
	if err != nil {
		return err
	}
	env.resetPins(fixed)
	for _, fixedFirst := range []bool{true, false} {
		for i, op := range ops {
			if op.Kind() != regalloc.Use || (op.Constraint().Kind == regalloc.FixedReg) != fixedFirst {
				continue
			}
			alloc, err := env.resolveUse(inst, i, op)
			if err != nil {
				return err
			}
			env.bind(i, alloc, allocs)
		}
	}

	// Uses are read before defs are written, so registers holding
	// values that die here can be reused for the defs.
	for _, op := range ops {
		if op.Kind() == regalloc.Use && env.info(op.VReg()).blockUses == 0 {
			env.lru.remove(op.VReg())
		}
	}
	env.resetPins(fixed)
	for i, op := range ops {
		if op.Kind() != regalloc.Def || op.Constraint().Kind != regalloc.Reuse {
			continue
		}
		preg, err := env.reuseSource(inst, i, op, ops, allocs)
		if err != nil {
			return err
		}
		env.pinned.Add(preg)
	}
	for _, kind := range []regalloc.ConstraintKindT{regalloc.FixedReg, regalloc.Reuse, regalloc.Any} {
		for i, op := range ops {
			if op.Kind() != regalloc.Def || defOrder(op.Constraint().Kind) != kind {
				continue
			}
			alloc, err := env.resolveDef(inst, i, op, ops, allocs)
			if err != nil {
				return err
			}
			env.bind(i, alloc, allocs)
		}
	}

	for i, op := range ops {
		if op.Kind() != regalloc.Def {
			continue
		}
		vreg := op.VReg()
		info := env.info(vreg)
		if preg, isReg := allocs[i].AsReg(); isReg && info.crossBlock && !info.stored {
			env.addEdit(regalloc.AfterInst(inst), allocs[i], regalloc.StackAlloc(env.slots.slotFor(vreg)))
			info.stored = true
			if env.debug {
				env.log.WithFields(logrus.Fields{"inst": inst, "vreg": vreg, "preg": preg}).Debug("store for other blocks")
			}
		}
		if info.blockUses == 0 {
			env.lru.remove(vreg)
		}
	}
	if env.opts.Annotate {
		env.annotate(inst, ops, allocs)
	}
	return nil
}

// Defs other than FixedReg and Reuse all go in the last group.

func defOrder(kind regalloc.ConstraintKindT) regalloc.ConstraintKindT {
	switch kind {
	case regalloc.FixedReg, regalloc.Reuse:
		return kind
	}
	return regalloc.Any
}

// Records operand i's allocation.  Its register can't be taken by
// any other operand in the same phase.

func (env *envT) bind(i int, alloc regalloc.AllocationT, allocs []regalloc.AllocationT) {
	allocs[i] = alloc
	if preg, isReg := alloc.AsReg(); isReg {
		env.pinned.Add(preg)
	} else {
		env.stats.StackOperands += 1
	}
}

func (env *envT) resetPins(fixed []regalloc.PRegT) {
	clear(env.pinned)
	env.pinned.Add(fixed...)
}

func (env *envT) annotate(inst regalloc.InstT, ops []regalloc.OperandT, allocs []regalloc.AllocationT) {
	fields := logrus.Fields{"inst": inst, "block": env.block}
	for i, op := range ops {
		fields[fmt.Sprintf("op%d", i)] = fmt.Sprintf("%s = %s", op, allocs[i])
	}
	env.log.WithFields(fields).Info("allocated")
}
