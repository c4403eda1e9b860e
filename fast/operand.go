// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Resolving a single operand's constraint to an allocation, moving
// values in and out of registers as needed.  Everything that has to
// happen before the instruction is put at its 'before' point,
// including stores of values evicted to make room for defs.

package fast

import (
	"github.com/sirupsen/logrus"

	"github.com/s48/regalloc/regalloc"
)

var noAlloc regalloc.AllocationT

// Fixed registers must be allocatable registers of the right class,
// and no register can be demanded for two different values by the
// uses, or by the defs.  A use and a def can ask for the same
// register, as the def is written after the use is read.

func (env *envT) checkFixed(inst regalloc.InstT, ops []regalloc.OperandT) ([]regalloc.PRegT, error) {
	var fixed []regalloc.PRegT
	for i, op := range ops {
		c := op.Constraint()
		if c.Kind != regalloc.FixedReg {
			continue
		}
		if _, found := env.lru.position[c.PReg]; !found || c.PReg.Class() != op.Class() {
			return nil, regalloc.NewError(regalloc.OutOfRegisters, inst, op.VReg(),
				"%s is not an allocatable %s register", c.PReg, op.Class())
		}
		for _, other := range ops[:i] {
			oc := other.Constraint()
			if oc.Kind == regalloc.FixedReg && oc.PReg == c.PReg &&
				other.Kind() == op.Kind() && other.VReg() != op.VReg() {
				return nil, regalloc.NewError(regalloc.ConflictingFixedRegisters, inst, op.VReg(),
					"%s is also wanted for %s", c.PReg, other.VReg())
			}
		}
		fixed = append(fixed, c.PReg)
	}
	return fixed, nil
}

func (env *envT) resolveUse(inst regalloc.InstT, i int, op regalloc.OperandT) (regalloc.AllocationT, error) {
	vreg := op.VReg()
	info := env.info(vreg)
	if info.defBlock == env.block && inst <= info.defInst {
		return noAlloc, regalloc.NewError(regalloc.SSAInvariantViolation, inst, vreg,
			"used before its definition at inst %d", info.defInst)
	}
	info.blockUses -= 1
	point := regalloc.BeforeInst(inst)
	c := op.Constraint()
	switch c.Kind {
	case regalloc.Any, regalloc.Reg:
		if preg, found := env.lru.lookup(vreg, point); found {
			env.stats.RegHits += 1
			return regalloc.RegAlloc(preg), nil
		}
		preg, found := env.findReg(inst, vreg.Class())
		if !found {
			if c.Kind == regalloc.Any {
				return regalloc.StackAlloc(env.slotHolding(vreg)), nil
			}
			return noAlloc, env.outOfRegisters(inst, vreg)
		}
		env.reload(vreg, preg, point)
		return regalloc.RegAlloc(preg), nil

	case regalloc.Stack:
		slot := regalloc.StackAlloc(env.slots.slotFor(vreg))
		if preg, found := env.lru.peek(vreg); found {
			if !env.valueInSlot(vreg) {
				env.addEdit(point, regalloc.RegAlloc(preg), slot)
				info.stored = true
			}
			env.lru.remove(vreg)
		}
		return slot, nil

	case regalloc.FixedReg:
		preg := c.PReg
		if occupant, found := env.lru.occupant(preg); found && occupant != vreg {
			env.lru.remove(occupant)
			env.spill(inst, occupant, preg)
		}
		if current, found := env.lru.lookup(vreg, point); !found {
			env.reload(vreg, preg, point)
		} else if current != preg {
			env.addEdit(point, regalloc.RegAlloc(current), regalloc.RegAlloc(preg))
			env.lru.insert(vreg, preg, point)
		} else {
			env.stats.RegHits += 1
		}
		return regalloc.RegAlloc(preg), nil

	case regalloc.Reuse:
		return noAlloc, regalloc.NewError(regalloc.InvalidReuseConstraint, inst, vreg,
			"operand %d is a use with a reuse constraint", i)
	}
	panic("unknown constraint kind " + c.Kind.String())
}

func (env *envT) resolveDef(inst regalloc.InstT, i int, op regalloc.OperandT,
	ops []regalloc.OperandT, allocs []regalloc.AllocationT) (regalloc.AllocationT, error) {

	vreg := op.VReg()
	point := regalloc.AfterInst(inst)
	c := op.Constraint()
	switch c.Kind {
	case regalloc.Any, regalloc.Reg:
		preg, found := env.findReg(inst, vreg.Class())
		if !found {
			if c.Kind == regalloc.Any {
				return env.defineInSlot(vreg), nil
			}
			return noAlloc, env.outOfRegisters(inst, vreg)
		}
		env.lru.insert(vreg, preg, point)
		return regalloc.RegAlloc(preg), nil

	case regalloc.Stack:
		return env.defineInSlot(vreg), nil

	case regalloc.FixedReg:
		env.takeForDef(inst, vreg, c.PReg)
		return regalloc.RegAlloc(c.PReg), nil

	case regalloc.Reuse:
		preg, err := env.reuseSource(inst, i, op, ops, allocs)
		if err != nil {
			return noAlloc, err
		}
		for j, other := range ops {
			if j != i && other.Kind() == regalloc.Def && allocs[j] == regalloc.RegAlloc(preg) {
				return noAlloc, regalloc.NewError(regalloc.ConflictingFixedRegisters, inst, vreg,
					"%s is also the destination of %s", preg, other.VReg())
			}
		}
		env.takeForDef(inst, vreg, preg)
		return regalloc.RegAlloc(preg), nil
	}
	panic("unknown constraint kind " + c.Kind.String())
}

// The register holding the source of a Reuse def.  The source must
// be a use of the same class that is already in a register.

func (env *envT) reuseSource(inst regalloc.InstT, i int, op regalloc.OperandT,
	ops []regalloc.OperandT, allocs []regalloc.AllocationT) (regalloc.PRegT, error) {

	index := op.Constraint().Index
	fail := func(format string, args ...any) (regalloc.PRegT, error) {
		return regalloc.PRegT{}, regalloc.NewError(regalloc.InvalidReuseConstraint, inst, op.VReg(), format, args...)
	}
	switch {
	case index < 0 || len(ops) <= index:
		return fail("operand %d reuses nonexistent operand %d", i, index)
	case ops[index].Kind() != regalloc.Use:
		return fail("operand %d reuses operand %d, which is not a use", i, index)
	case allocs[index].IsNone():
		return fail("operand %d reuses operand %d, which has not been allocated", i, index)
	case ops[index].Class() != op.Class():
		return fail("operand %d is %s but operand %d is %s", i, op.Class(), index, ops[index].Class())
	}
	preg, isReg := allocs[index].AsReg()
	if !isReg {
		return fail("operand %d reuses operand %d, which is in %s", i, index, allocs[index])
	}
	return preg, nil
}

// Put the value being defined in 'preg', moving out whatever was
// there.

func (env *envT) takeForDef(inst regalloc.InstT, vreg regalloc.VRegT, preg regalloc.PRegT) {
	if occupant, found := env.lru.occupant(preg); found {
		env.lru.remove(occupant)
		env.spill(inst, occupant, preg)
	}
	env.lru.insert(vreg, preg, regalloc.AfterInst(inst))
}

func (env *envT) defineInSlot(vreg regalloc.VRegT) regalloc.AllocationT {
	env.info(vreg).stored = true
	return regalloc.StackAlloc(env.slots.slotFor(vreg))
}

// An unpinned register, evicting its value if need be.

func (env *envT) findReg(inst regalloc.InstT, class regalloc.RegClassT) (regalloc.PRegT, bool) {
	if env.lru.capacity(class) == 0 {
		return regalloc.PRegT{}, false
	}
	if preg, found := env.lru.free(class, env.pinned); found {
		return preg, true
	}
	victim, preg, found := env.lru.evict(class, env.pinned)
	if !found {
		return regalloc.PRegT{}, false
	}
	env.spill(inst, victim, preg)
	return preg, true
}

// 'victim' has been removed from 'preg'.  If it is needed later and
// its slot doesn't already have it, it is stored there.

func (env *envT) spill(inst regalloc.InstT, victim regalloc.VRegT, preg regalloc.PRegT) {
	env.stats.Evictions += 1
	info := env.info(victim)
	stored := false
	if 0 < info.blockUses && !env.valueInSlot(victim) {
		env.addEdit(regalloc.BeforeInst(inst), regalloc.RegAlloc(preg), regalloc.StackAlloc(env.slots.slotFor(victim)))
		info.stored = true
		stored = true
	}
	if env.debug {
		env.log.WithFields(logrus.Fields{
			"inst":   inst,
			"vreg":   victim,
			"preg":   preg,
			"stored": stored,
		}).Debug("evict")
	}
}

func (env *envT) reload(vreg regalloc.VRegT, preg regalloc.PRegT, point regalloc.ProgPointT) {
	slot := env.slotHolding(vreg)
	env.addEdit(point, regalloc.StackAlloc(slot), regalloc.RegAlloc(preg))
	env.lru.insert(vreg, preg, point)
}

// The slot of a value that is not in a register.  Such a value must
// have been stored, as values are only dropped from registers without
// a store once they are dead.

func (env *envT) slotHolding(vreg regalloc.VRegT) regalloc.SpillSlotT {
	if !env.valueInSlot(vreg) {
		panic("value " + vreg.String() + " is in neither a register nor its spill slot")
	}
	return env.slots.slotFor(vreg)
}

func (env *envT) outOfRegisters(inst regalloc.InstT, vreg regalloc.VRegT) error {
	return regalloc.NewError(regalloc.OutOfRegisters, inst, vreg, "no %s register is available", vreg.Class())
}
