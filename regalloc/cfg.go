// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Block-level information derived from a function: the postorder
// that the allocator walks, the program points at which each block
// starts and stops, dominators for the SSA checker, and which blocks
// are part of a cycle.

package regalloc

import (
	"github.com/s48/regalloc/util"
)

type CFGInfoT struct {
	Postorder  []BlockT     // successors before predecessors
	BlockEntry []ProgPointT // before the block's first instruction
	BlockExit  []ProgPointT // before the instruction following the block
	InstBlock  []BlockT     // the block containing each instruction
	Dominator  []BlockT     // immediate dominators; the entry is its own
	InLoop     []bool       // block is on some cycle
}

func NewCFGInfo(f FunctionT) (*CFGInfoT, error) {
	numBlocks := f.NumBlocks()
	numInsts := f.NumInsts()
	if numBlocks == 0 {
		return nil, NewFunctionError(InvalidCFG, "function has no blocks")
	}
	entry := f.EntryBlock()
	if !validBlock(entry, numBlocks) {
		return nil, NewFunctionError(InvalidCFG, "entry block %d out of range", entry)
	}
	info := &CFGInfoT{
		BlockEntry: make([]ProgPointT, numBlocks),
		BlockExit:  make([]ProgPointT, numBlocks),
		InstBlock:  make([]BlockT, numInsts),
		Dominator:  make([]BlockT, numBlocks),
		InLoop:     make([]bool, numBlocks),
	}
	for i := range info.InstBlock {
		info.InstBlock[i] = -1
	}
	for b := 0; b < numBlocks; b++ {
		block := BlockT(b)
		insts := f.BlockInsts(block)
		if insts.Last < insts.First || insts.First < 0 || numInsts <= int(insts.Last) {
			return nil, NewFunctionError(InvalidCFG, "block %d has bad instruction range [%d, %d]",
				block, insts.First, insts.Last)
		}
		for inst := insts.First; inst <= insts.Last; inst++ {
			if info.InstBlock[inst] != -1 {
				return nil, NewError(InvalidCFG, inst, NoVReg, "in both block %d and block %d",
					info.InstBlock[inst], block)
			}
			info.InstBlock[inst] = block
		}
		info.BlockEntry[block] = BeforeInst(insts.First)
		info.BlockExit[block] = BeforeInst(insts.Last.Next())
		for _, succ := range f.BlockSuccs(block) {
			if !validBlock(succ, numBlocks) {
				return nil, NewFunctionError(InvalidCFG, "block %d has successor %d out of range", block, succ)
			}
		}
	}
	for i, block := range info.InstBlock {
		if block == -1 {
			return nil, NewError(InvalidCFG, InstT(i), NoVReg, "not in any block")
		}
	}

	info.Postorder = postorder(f, entry)
	if len(info.Postorder) != numBlocks {
		reached := util.NewSet(info.Postorder...)
		for b := 0; b < numBlocks; b++ {
			if !reached.Contains(BlockT(b)) {
				return nil, NewFunctionError(InvalidCFG, "block %d is unreachable", b)
			}
		}
	}

	util.FindDominators(entry, f.BlockSuccs,
		func(block BlockT, dom BlockT) {
			info.Dominator[block] = dom
		})

	blocks := make([]BlockT, numBlocks)
	for b := range blocks {
		blocks[b] = BlockT(b)
	}
	for _, component := range util.StronglyConnectedComponents(blocks, f.BlockSuccs) {
		if 1 < len(component) {
			for _, block := range component {
				info.InLoop[block] = true
			}
		}
	}
	for _, block := range blocks {
		for _, succ := range f.BlockSuccs(block) {
			if succ == block {
				info.InLoop[block] = true
			}
		}
	}
	return info, nil
}

func validBlock(block BlockT, numBlocks int) bool {
	return 0 <= block && int(block) < numBlocks
}

// Iterative so that long chains of blocks don't blow the stack.

func postorder(f FunctionT, entry BlockT) []BlockT {
	type frameT struct {
		block BlockT
		next  int // index of the next successor to visit
	}
	result := make([]BlockT, 0, f.NumBlocks())
	visited := make([]bool, f.NumBlocks())
	stack := util.StackT[*frameT]{}
	visited[entry] = true
	stack.Push(&frameT{block: entry})
	for 0 < stack.Len() {
		frame := stack.Top()
		succs := f.BlockSuccs(frame.block)
		if frame.next < len(succs) {
			succ := succs[frame.next]
			frame.next += 1
			if !visited[succ] {
				visited[succ] = true
				stack.Push(&frameT{block: succ})
			}
		} else {
			result = append(result, frame.block)
			stack.Pop()
		}
	}
	return result
}

// Does 'a' dominate 'b'?  Every block dominates itself.

func (info *CFGInfoT) Dominates(a BlockT, b BlockT) bool {
	for {
		if a == b {
			return true
		}
		dom := info.Dominator[b]
		if dom == b {
			return false
		}
		b = dom
	}
}
