// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// The textual form of a function:
//
//	(function add
//	  (block b0 (succs b1)
//	    (inst (def v0 reg))
//	    (inst (def v1:float any)))
//	  (block b1
//	    (inst (use v0 fixed p0) (def v2 reuse 0))))
//
// Operands are (use|def <vreg> <constraint>).  A vreg is v<N>, with
// an optional :int, :float or :vector suffix; the default is int.
// Constraints are any, reg, stack, fixed <preg> and reuse <index>.
// A preg is p<N> and takes its class from the vreg unless it has its
// own suffix.  Blocks must appear in instruction order and the first
// is the entry.

package textfunc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/s48/regalloc/regalloc"
	"github.com/s48/regalloc/util"
)

func ParseFunc(text string) (*FuncT, error) {
	sexp, err := util.ReadSExp(text)
	if err != nil {
		return nil, err
	}
	if sexp.Head() != "function" || len(sexp.List) < 2 || sexp.List[1].Kind != util.SExpSymbol {
		return nil, errors.Errorf("expected (function <name> ...), got %s", sexp)
	}
	name := sexp.List[1].Symbol
	blockForms := sexp.List[2:]

	labels := map[string]regalloc.BlockT{}
	for i, form := range blockForms {
		if form.Head() != "block" || len(form.List) < 2 || form.List[1].Kind != util.SExpSymbol {
			return nil, errors.Errorf("%s: expected (block <label> ...), got %s", name, form)
		}
		label := form.List[1].Symbol
		if _, found := labels[label]; found {
			return nil, errors.Errorf("%s: block %s defined twice", name, label)
		}
		labels[label] = regalloc.BlockT(i)
	}

	builder := NewBuilder(name)
	for _, form := range blockForms {
		label := form.List[1].Symbol
		var succs []regalloc.BlockT
		var instForms []*util.SExpT
		for _, item := range form.List[2:] {
			switch item.Head() {
			case "succs":
				for _, succ := range item.List[1:] {
					block, found := labels[succ.String()]
					if !found {
						return nil, errors.Errorf("%s: block %s has unknown successor %s", name, label, succ)
					}
					succs = append(succs, block)
				}
			case "inst":
				instForms = append(instForms, item)
			default:
				return nil, errors.Errorf("%s: unexpected %s in block %s", name, item, label)
			}
		}
		builder.Block(succs...)
		for _, instForm := range instForms {
			operands := make([]regalloc.OperandT, 0, len(instForm.List)-1)
			for _, opForm := range instForm.List[1:] {
				op, err := parseOperand(opForm)
				if err != nil {
					return nil, errors.Wrapf(err, "%s: block %s", name, label)
				}
				operands = append(operands, op)
			}
			builder.Inst(operands...)
		}
	}
	return builder.Finish()
}

func parseOperand(form *util.SExpT) (regalloc.OperandT, error) {
	var none regalloc.OperandT
	if form.Kind != util.SExpList || len(form.List) < 3 {
		return none, errors.Errorf("malformed operand %s", form)
	}
	var kind regalloc.OperandKindT
	switch form.Head() {
	case "use":
		kind = regalloc.Use
	case "def":
		kind = regalloc.Def
	default:
		return none, errors.Errorf("operand %s is neither use nor def", form)
	}
	vreg, err := parseVReg(form.List[1].String())
	if err != nil {
		return none, err
	}
	args := form.List[2:]
	var constraint regalloc.OperandConstraintT
	switch args[0].String() {
	case "any":
		constraint.Kind = regalloc.Any
	case "reg":
		constraint.Kind = regalloc.Reg
	case "stack":
		constraint.Kind = regalloc.Stack
	case "fixed":
		if len(args) != 2 {
			return none, errors.Errorf("expected (... fixed <preg>), got %s", form)
		}
		preg, err := parsePReg(args[1].String(), vreg.Class())
		if err != nil {
			return none, err
		}
		constraint = regalloc.OperandConstraintT{Kind: regalloc.FixedReg, PReg: preg}
		args = args[1:]
	case "reuse":
		if len(args) != 2 || args[1].Kind != util.SExpInt {
			return none, errors.Errorf("expected (... reuse <index>), got %s", form)
		}
		constraint = regalloc.OperandConstraintT{Kind: regalloc.Reuse, Index: args[1].Integer}
		args = args[1:]
	default:
		return none, errors.Errorf("unknown constraint in %s", form)
	}
	if len(args) != 1 {
		return none, errors.Errorf("extra items in operand %s", form)
	}
	return regalloc.MakeOperand(vreg, kind, constraint), nil
}

func parseVReg(name string) (regalloc.VRegT, error) {
	index, class, err := parseRegName(name, "v", regalloc.Int)
	return regalloc.MakeVReg(index, class), err
}

func parsePReg(name string, defaultClass regalloc.RegClassT) (regalloc.PRegT, error) {
	index, class, err := parseRegName(name, "p", defaultClass)
	return regalloc.MakePReg(index, class), err
}

// <prefix><index>[:<class>]

func parseRegName(name string, prefix string, class regalloc.RegClassT) (int, regalloc.RegClassT, error) {
	base, className, hasClass := strings.Cut(name, ":")
	if hasClass {
		var ok bool
		class, ok = regalloc.ParseRegClass(className)
		if !ok {
			return 0, 0, errors.Errorf("%s: unknown register class %q", name, className)
		}
	}
	digits, found := strings.CutPrefix(base, prefix)
	if !found {
		return 0, 0, errors.Errorf("%s: expected a name starting with %q", name, prefix)
	}
	index, err := strconv.Atoi(digits)
	if err != nil || index < 0 {
		return 0, 0, errors.Errorf("%s: bad register number", name)
	}
	return index, class, nil
}

//----------------------------------------------------------------
// And back again.

func FormatFunc(f *FuncT) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(function %s", f.Name)
	for b := range f.blocks {
		block := &f.blocks[b]
		fmt.Fprintf(&sb, "\n  (block b%d", b)
		if 0 < len(block.succs) {
			sb.WriteString(" (succs")
			for _, succ := range block.succs {
				fmt.Fprintf(&sb, " b%d", succ)
			}
			sb.WriteString(")")
		}
		for inst := block.insts.First; inst <= block.insts.Last; inst++ {
			sb.WriteString("\n    (inst")
			for _, op := range f.insts[inst] {
				fmt.Fprintf(&sb, " (%s %s %s)", op.Kind(), formatVReg(op.VReg()), formatConstraint(op))
			}
			sb.WriteString(")")
		}
		sb.WriteString(")")
	}
	sb.WriteString(")\n")
	return sb.String()
}

func formatVReg(vreg regalloc.VRegT) string {
	if vreg.Class() == regalloc.Int {
		return fmt.Sprintf("v%d", vreg.VReg())
	}
	return fmt.Sprintf("v%d:%s", vreg.VReg(), vreg.Class())
}

func formatConstraint(op regalloc.OperandT) string {
	c := op.Constraint()
	if c.Kind == regalloc.FixedReg && c.PReg.Class() != op.Class() {
		return fmt.Sprintf("fixed p%d:%s", c.PReg.Index(), c.PReg.Class())
	} else if c.Kind == regalloc.FixedReg {
		return fmt.Sprintf("fixed p%d", c.PReg.Index())
	}
	return c.String()
}
