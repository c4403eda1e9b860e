// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// The interfaces through which the allocator sees the function being
// compiled and the machine it is being compiled for.

package regalloc

// Blocks cover disjoint, contiguous ranges of instructions and
// together cover all of them.

type FunctionT interface {
	NumInsts() int
	NumBlocks() int
	NumVRegs() int
	EntryBlock() BlockT
	BlockInsts(block BlockT) InstRangeT
	BlockSuccs(block BlockT) []BlockT
	BlockPreds(block BlockT) []BlockT
	InstOperands(inst InstT) []OperandT
}

// The allocatable registers of each class, most preferred first.

type MachineEnvT struct {
	Regs [NumRegClasses][]PRegT
}

// An environment with 'counts[c]' registers in class c, numbered
// from zero.

func MakeMachineEnv(counts ...int) *MachineEnvT {
	env := &MachineEnvT{}
	for class, count := range counts {
		if NumRegClasses <= class {
			break
		}
		for i := 0; i < count; i++ {
			env.Regs[class] = append(env.Regs[class], MakePReg(i, RegClassT(class)))
		}
	}
	return env
}

func (env *MachineEnvT) Contains(preg PRegT) bool {
	if NumRegClasses <= int(preg.Class()) {
		return false
	}
	for _, reg := range env.Regs[preg.Class()] {
		if reg == preg {
			return true
		}
	}
	return false
}
