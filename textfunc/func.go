// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// A simple in-memory implementation of regalloc.FunctionT, built
// either directly with a BuilderT or from the textual form in
// parse.go.

package textfunc

import (
	"github.com/pkg/errors"

	"github.com/s48/regalloc/regalloc"
)

type FuncT struct {
	Name     string
	blocks   []blockT
	insts    [][]regalloc.OperandT
	numVRegs int
}

type blockT struct {
	insts regalloc.InstRangeT
	succs []regalloc.BlockT
	preds []regalloc.BlockT
}

func (f *FuncT) NumInsts() int               { return len(f.insts) }
func (f *FuncT) NumBlocks() int              { return len(f.blocks) }
func (f *FuncT) NumVRegs() int               { return f.numVRegs }
func (f *FuncT) EntryBlock() regalloc.BlockT { return 0 }

func (f *FuncT) BlockInsts(block regalloc.BlockT) regalloc.InstRangeT {
	return f.blocks[block].insts
}

func (f *FuncT) BlockSuccs(block regalloc.BlockT) []regalloc.BlockT {
	return f.blocks[block].succs
}

func (f *FuncT) BlockPreds(block regalloc.BlockT) []regalloc.BlockT {
	return f.blocks[block].preds
}

func (f *FuncT) InstOperands(inst regalloc.InstT) []regalloc.OperandT {
	return f.insts[inst]
}

//----------------------------------------------------------------
// Building functions by hand.
//
//	b := NewBuilder("f")
//	b.Block(1)
//	b.Inst(regalloc.RegDef(v0))
//	b.Block()
//	b.Inst(regalloc.RegUse(v0))
//	f, err := b.Finish()
//
// Blocks are numbered in the order they are started and the first one
// is the entry.  Instructions go in the most recently started block.

type BuilderT struct {
	f     *FuncT
	succs [][]regalloc.BlockT
}

func NewBuilder(name string) *BuilderT {
	return &BuilderT{f: &FuncT{Name: name}}
}

func (b *BuilderT) Block(succs ...regalloc.BlockT) regalloc.BlockT {
	first := regalloc.InstT(len(b.f.insts))
	b.f.blocks = append(b.f.blocks, blockT{insts: regalloc.InstRangeT{First: first, Last: first - 1}})
	b.succs = append(b.succs, succs)
	return regalloc.BlockT(len(b.f.blocks) - 1)
}

func (b *BuilderT) Inst(operands ...regalloc.OperandT) regalloc.InstT {
	if len(b.f.blocks) == 0 {
		b.Block()
	}
	inst := regalloc.InstT(len(b.f.insts))
	b.f.insts = append(b.f.insts, operands)
	b.f.blocks[len(b.f.blocks)-1].insts.Last = inst
	for _, op := range operands {
		if b.f.numVRegs <= op.VReg().VReg() {
			b.f.numVRegs = op.VReg().VReg() + 1
		}
	}
	return inst
}

// Fills in the successors and predecessors.  Structural problems
// such as empty blocks are left for regalloc.NewCFGInfo to find.

func (b *BuilderT) Finish() (*FuncT, error) {
	f := b.f
	for i, succs := range b.succs {
		for _, succ := range succs {
			if succ < 0 || len(f.blocks) <= int(succ) {
				return nil, errors.Errorf("%s: block %d has nonexistent successor %d", f.Name, i, succ)
			}
			f.blocks[i].succs = append(f.blocks[i].succs, succ)
			f.blocks[succ].preds = append(f.blocks[succ].preds, regalloc.BlockT(i))
		}
	}
	return f, nil
}

// For tests, where the function is known to be well formed.

func (b *BuilderT) MustFinish() *FuncT {
	f, err := b.Finish()
	if err != nil {
		panic(err)
	}
	return f
}
