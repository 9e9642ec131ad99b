package types

// StackEffect describes the net transformation a word applies to the data
// stack: Inputs/Outputs are ordered deep-to-top, matching the left-to-right reading of a `( a b -- c d )`
// comment, where the rightmost symbol is nearest the top of stack at that
// point. This is the same convention spec sec 3's DeclaredEffect comments
// use, so a StackEffect built from one reads naturally.
type StackEffect struct {
	Inputs  []Type
	Outputs []Type
}

func (e StackEffect) Apply(s *Substitution) StackEffect {
	out := StackEffect{
		Inputs:  make([]Type, len(e.Inputs)),
		Outputs: make([]Type, len(e.Outputs)),
	}
	for i, t := range e.Inputs {
		out.Inputs[i] = s.Apply(t)
	}
	for i, t := range e.Outputs {
		out.Outputs[i] = s.Apply(t)
	}
	return out
}

// Compose implements spec sec 4.3's composition rule for `f ; g`: unify the
// suffix of f's outputs against the prefix of g's inputs, producing a
// combined effect over whatever wasn't matched.
//
//	f : (α -- β)   g : (γ -- δ)
//	k = min(len(β), len(γ))
//	unify β[len(β)-k:] pairwise with γ[:k]
//	f;g : (α ++ γ[k:]  --  β[:len(β)-k] ++ δ)
func Compose(f, g StackEffect, s *Substitution) (StackEffect, *UnifyError) {
	k := min(len(f.Outputs), len(g.Inputs))

	betaSuffix := f.Outputs[len(f.Outputs)-k:]
	gammaPrefix := g.Inputs[:k]
	for i := 0; i < k; i++ {
		if err := Unify(betaSuffix[i], gammaPrefix[i], s); err != nil {
			return StackEffect{}, err
		}
	}

	combined := StackEffect{
		Inputs:  append(append([]Type{}, f.Inputs...), g.Inputs[k:]...),
		Outputs: append(append([]Type{}, f.Outputs[:len(f.Outputs)-k]...), g.Outputs...),
	}
	return combined, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PrimitiveTable returns a fresh StackEffect for a built-in primitive word,
// instantiated with new type variables on every call so that two uses of a
// polymorphic primitive (e.g. two DUPs) don't spuriously unify with each
// other. The bool result is false for names that aren't primitives.
func PrimitiveTable(name string, gen *VarGen) (StackEffect, bool) {
	switch name {
	case "DUP":
		a := gen.Fresh()
		return StackEffect{Inputs: []Type{a}, Outputs: []Type{a, a}}, true
	case "DROP":
		a := gen.Fresh()
		return StackEffect{Inputs: []Type{a}, Outputs: nil}, true
	case "SWAP":
		a, b := gen.Fresh(), gen.Fresh()
		return StackEffect{Inputs: []Type{a, b}, Outputs: []Type{b, a}}, true
	case "OVER":
		a, b := gen.Fresh(), gen.Fresh()
		return StackEffect{Inputs: []Type{a, b}, Outputs: []Type{a, b, a}}, true
	case "ROT":
		a, b, c := gen.Fresh(), gen.Fresh(), gen.Fresh()
		return StackEffect{Inputs: []Type{a, b, c}, Outputs: []Type{b, c, a}}, true
	case "NIP":
		a, b := gen.Fresh(), gen.Fresh()
		return StackEffect{Inputs: []Type{a, b}, Outputs: []Type{b}}, true
	case "TUCK":
		a, b := gen.Fresh(), gen.Fresh()
		return StackEffect{Inputs: []Type{a, b}, Outputs: []Type{b, a, b}}, true
	case "+", "-", "*", "/", "MOD":
		n := gen.Fresh()
		return StackEffect{Inputs: []Type{n, n}, Outputs: []Type{n}}, true
	case "NEGATE", "ABS":
		n := gen.Fresh()
		return StackEffect{Inputs: []Type{n}, Outputs: []Type{n}}, true
	case "=", "<", ">", "<=", ">=", "<>":
		n := gen.Fresh()
		return StackEffect{Inputs: []Type{n, n}, Outputs: []Type{Bool()}}, true
	case "0=", "0<", "0>":
		n := gen.Fresh()
		return StackEffect{Inputs: []Type{n}, Outputs: []Type{Bool()}}, true
	case "AND", "OR", "XOR":
		return StackEffect{Inputs: []Type{Bool(), Bool()}, Outputs: []Type{Bool()}}, true
	case "NOT", "INVERT":
		return StackEffect{Inputs: []Type{Bool()}, Outputs: []Type{Bool()}}, true
	case "I", "J":
		return StackEffect{Inputs: nil, Outputs: []Type{Int()}}, true
	case "@":
		return StackEffect{Inputs: []Type{Addr()}, Outputs: []Type{gen.Fresh()}}, true
	case "!":
		a := gen.Fresh()
		return StackEffect{Inputs: []Type{a, Addr()}, Outputs: nil}, true
	case ".":
		n := gen.Fresh()
		return StackEffect{Inputs: []Type{n}, Outputs: nil}, true
	case "EMIT":
		return StackEffect{Inputs: []Type{Char()}, Outputs: nil}, true
	case "CR", "DEPTH":
		if name == "DEPTH" {
			return StackEffect{Inputs: nil, Outputs: []Type{Int()}}, true
		}
		return StackEffect{Inputs: nil, Outputs: nil}, true
	default:
		return StackEffect{}, false
	}
}
