// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Registers, both virtual and physical, and the classes they come in.

package regalloc

import (
	"fmt"
)

type RegClassT uint8

const (
	Int RegClassT = iota
	Float
	Vector
	NumRegClasses = 3
)

var regClassNames = [NumRegClasses]string{"int", "float", "vector"}

func (class RegClassT) String() string {
	if int(class) < NumRegClasses {
		return regClassNames[class]
	}
	return fmt.Sprintf("class%d", class)
}

// The short suffix used when printing registers; ints have none.

func (class RegClassT) suffix() string {
	switch class {
	case Float:
		return "f"
	case Vector:
		return "v"
	}
	return ""
}

// Size in bytes of a spill slot holding a value of this class.

func (class RegClassT) SlotSize() int {
	switch class {
	case Float, Vector:
		return 8
	}
	return 4
}

func ParseRegClass(name string) (RegClassT, bool) {
	for i, className := range regClassNames {
		if name == className {
			return RegClassT(i), true
		}
	}
	return 0, false
}

//----------------------------------------------------------------
// Virtual registers are the SSA values.  Each has exactly one
// definition.

type VRegT struct {
	id    int
	class RegClassT
}

func MakeVReg(id int, class RegClassT) VRegT {
	return VRegT{id: id, class: class}
}

func (vreg VRegT) VReg() int        { return vreg.id }
func (vreg VRegT) Class() RegClassT { return vreg.class }
func (vreg VRegT) String() string   { return fmt.Sprintf("v%d%s", vreg.id, vreg.class.suffix()) }

//----------------------------------------------------------------
// Physical registers are numbered within their class.

type PRegT struct {
	index int
	class RegClassT
}

func MakePReg(index int, class RegClassT) PRegT {
	return PRegT{index: index, class: class}
}

func (preg PRegT) Index() int       { return preg.index }
func (preg PRegT) Class() RegClassT { return preg.class }
func (preg PRegT) String() string   { return fmt.Sprintf("p%d%s", preg.index, preg.class.suffix()) }
