// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Optional check that a function really is in SSA form: every vreg
// is defined exactly once and every use is dominated by the
// definition.  The allocator assumes this without checking.

package regalloc

func ValidateSSA(f FunctionT, cfg *CFGInfoT) error {
	numVRegs := f.NumVRegs()
	defInst := make([]InstT, numVRegs)
	for i := range defInst {
		defInst[i] = -1
	}
	classes := make([]RegClassT, numVRegs)
	for i := 0; i < f.NumInsts(); i++ {
		inst := InstT(i)
		for _, op := range f.InstOperands(inst) {
			vreg := op.VReg()
			if vreg.VReg() < 0 || numVRegs <= vreg.VReg() {
				return NewError(SSAInvariantViolation, inst, vreg, "vreg out of range")
			}
			if op.Kind() != Def {
				continue
			}
			if defInst[vreg.VReg()] != -1 {
				return NewError(SSAInvariantViolation, inst, vreg, "also defined at inst %d",
					defInst[vreg.VReg()])
			}
			defInst[vreg.VReg()] = inst
			classes[vreg.VReg()] = vreg.Class()
		}
	}
	for _, block := range cfg.Postorder {
		insts := f.BlockInsts(block)
		for inst := insts.First; inst <= insts.Last; inst++ {
			for _, op := range f.InstOperands(inst) {
				if op.Kind() != Use {
					continue
				}
				vreg := op.VReg()
				def := defInst[vreg.VReg()]
				switch {
				case def == -1:
					return NewError(SSAInvariantViolation, inst, vreg, "used but never defined")
				case classes[vreg.VReg()] != vreg.Class():
					return NewError(SSAInvariantViolation, inst, vreg, "used as %s but defined as %s",
						vreg.Class(), classes[vreg.VReg()])
				case cfg.InstBlock[def] == block:
					if inst <= def {
						return NewError(SSAInvariantViolation, inst, vreg, "used before its definition at inst %d", def)
					}
				case !cfg.Dominates(cfg.InstBlock[def], block):
					return NewError(SSAInvariantViolation, inst, vreg, "definition at inst %d does not dominate use", def)
				}
			}
		}
	}
	return nil
}
