// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Instructions, blocks, operands and program points.

package regalloc

import (
	"fmt"
)

type InstT int

func (inst InstT) Next() InstT { return inst + 1 }

type BlockT int

// Instructions [First, Last] belong to a block, inclusive at both ends.

type InstRangeT struct {
	First InstT
	Last  InstT
}

func (r InstRangeT) Len() int { return int(r.Last-r.First) + 1 }

//----------------------------------------------------------------
// A program point is a position just before or just after an
// instruction.  Points are ordered, with every instruction's
// 'before' point preceding its 'after' point.

type InstPosT uint8

const (
	Before InstPosT = iota
	After
)

type ProgPointT int

func BeforeInst(inst InstT) ProgPointT { return ProgPointT(inst) * 2 }
func AfterInst(inst InstT) ProgPointT  { return ProgPointT(inst)*2 + 1 }

func (point ProgPointT) Inst() InstT      { return InstT(point / 2) }
func (point ProgPointT) Pos() InstPosT    { return InstPosT(point % 2) }
func (point ProgPointT) Next() ProgPointT { return point + 1 }

func (point ProgPointT) String() string {
	if point.Pos() == Before {
		return fmt.Sprintf("%d.b", point.Inst())
	}
	return fmt.Sprintf("%d.a", point.Inst())
}

//----------------------------------------------------------------
// Operands

type OperandKindT uint8

const (
	Use OperandKindT = iota
	Def
)

func (kind OperandKindT) String() string {
	if kind == Use {
		return "use"
	}
	return "def"
}

type ConstraintKindT uint8

const (
	Any      ConstraintKindT = iota // register if one can be had, else the spill slot
	Reg                             // any register of the vreg's class
	Stack                           // the vreg's spill slot
	FixedReg                        // one particular register
	Reuse                           // the same location as another operand
)

var constraintNames = []string{"any", "reg", "stack", "fixed", "reuse"}

func (kind ConstraintKindT) String() string {
	return constraintNames[kind]
}

// PReg is only meaningful for FixedReg and Index only for Reuse.

type OperandConstraintT struct {
	Kind  ConstraintKindT
	PReg  PRegT
	Index int
}

func (c OperandConstraintT) String() string {
	switch c.Kind {
	case FixedReg:
		return fmt.Sprintf("fixed %s", c.PReg)
	case Reuse:
		return fmt.Sprintf("reuse %d", c.Index)
	}
	return c.Kind.String()
}

type OperandT struct {
	vreg       VRegT
	kind       OperandKindT
	constraint OperandConstraintT
}

func MakeOperand(vreg VRegT, kind OperandKindT, constraint OperandConstraintT) OperandT {
	return OperandT{vreg: vreg, kind: kind, constraint: constraint}
}

func (op OperandT) VReg() VRegT                    { return op.vreg }
func (op OperandT) Class() RegClassT               { return op.vreg.class }
func (op OperandT) Kind() OperandKindT             { return op.kind }
func (op OperandT) Constraint() OperandConstraintT { return op.constraint }

func (op OperandT) String() string {
	return fmt.Sprintf("%s %s %s", op.kind, op.vreg, op.constraint)
}

// Shorthands for the common cases.

func AnyUse(vreg VRegT) OperandT   { return MakeOperand(vreg, Use, OperandConstraintT{Kind: Any}) }
func RegUse(vreg VRegT) OperandT   { return MakeOperand(vreg, Use, OperandConstraintT{Kind: Reg}) }
func StackUse(vreg VRegT) OperandT { return MakeOperand(vreg, Use, OperandConstraintT{Kind: Stack}) }
func AnyDef(vreg VRegT) OperandT   { return MakeOperand(vreg, Def, OperandConstraintT{Kind: Any}) }
func RegDef(vreg VRegT) OperandT   { return MakeOperand(vreg, Def, OperandConstraintT{Kind: Reg}) }
func StackDef(vreg VRegT) OperandT { return MakeOperand(vreg, Def, OperandConstraintT{Kind: Stack}) }

func FixedUse(vreg VRegT, preg PRegT) OperandT {
	return MakeOperand(vreg, Use, OperandConstraintT{Kind: FixedReg, PReg: preg})
}

func FixedDef(vreg VRegT, preg PRegT) OperandT {
	return MakeOperand(vreg, Def, OperandConstraintT{Kind: FixedReg, PReg: preg})
}

func ReuseDef(vreg VRegT, index int) OperandT {
	return MakeOperand(vreg, Def, OperandConstraintT{Kind: Reuse, Index: index})
}
