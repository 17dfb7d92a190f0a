package ir

// Equal reports whether a and b are structurally identical.
// Binder names are significant: alpha-equivalent terms are not Equal.
// Two nil expressions are equal (absent guards).
func Equal(a, b Expression) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Lit:
		y, ok := b.(Lit)
		return ok && EqualLiteral(x.Value, y.Value)
	case Var:
		y, ok := b.(Var)
		return ok && x.Name == y.Name
	case Lambda:
		y, ok := b.(Lambda)
		return ok && x.Param == y.Param && Equal(x.Body, y.Body)
	case Apply:
		y, ok := b.(Apply)
		return ok && Equal(x.Fn, y.Fn) && Equal(x.Arg, y.Arg)
	case LinearApply:
		y, ok := b.(LinearApply)
		return ok && Equal(x.Fn, y.Fn) && Equal(x.Arg, y.Arg)
	case Let:
		y, ok := b.(Let)
		return ok && x.Name == y.Name && Equal(x.Value, y.Value) && Equal(x.Body, y.Body)
	case Match:
		y, ok := b.(Match)
		if !ok || !Equal(x.Subject, y.Subject) || len(x.Arms) != len(y.Arms) {
			return false
		}
		for i := range x.Arms {
			if !EqualPattern(x.Arms[i].Pattern, y.Arms[i].Pattern) ||
				!Equal(x.Arms[i].Guard, y.Arms[i].Guard) ||
				!Equal(x.Arms[i].Body, y.Arms[i].Body) {
				return false
			}
		}
		return true
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSlices(x.Items, y.Items)
	case List:
		y, ok := b.(List)
		return ok && equalSlices(x.Items, y.Items)
	case Record:
		y, ok := b.(Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for k, xv := range x.Fields {
			yv, found := y.Fields[k]
			if !found || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalSlices(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// EqualLiteral compares literals by kind and value.
// Floats compare by their decimal text, so 1.0 and 1 differ from IntLit(1).
func EqualLiteral(a, b Literal) bool {
	switch x := a.(type) {
	case IntLit:
		y, ok := b.(IntLit)
		return ok && x == y
	case FloatLit:
		y, ok := b.(FloatLit)
		return ok && x == y
	case StringLit:
		y, ok := b.(StringLit)
		return ok && x == y
	case BoolLit:
		y, ok := b.(BoolLit)
		return ok && x == y
	case UnitLit:
		_, ok := b.(UnitLit)
		return ok
	default:
		return false
	}
}

// EqualPattern reports whether two patterns are structurally identical.
func EqualPattern(a, b Pattern) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Wildcard:
		_, ok := b.(Wildcard)
		return ok
	case PVar:
		y, ok := b.(PVar)
		return ok && x.Name == y.Name
	case PLit:
		y, ok := b.(PLit)
		return ok && EqualLiteral(x.Value, y.Value)
	case Bind:
		y, ok := b.(Bind)
		return ok && x.Name == y.Name && EqualPattern(x.Sub, y.Sub)
	case PTuple:
		y, ok := b.(PTuple)
		return ok && equalPatterns(x.Items, y.Items)
	case PList:
		y, ok := b.(PList)
		return ok && equalPatterns(x.Items, y.Items)
	case PRecord:
		y, ok := b.(PRecord)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for k, xp := range x.Fields {
			yp, found := y.Fields[k]
			if !found || !EqualPattern(xp, yp) {
				return false
			}
		}
		return true
	case Constructor:
		y, ok := b.(Constructor)
		return ok && x.Name == y.Name && equalPatterns(x.Args, y.Args)
	case PLambda:
		y, ok := b.(PLambda)
		return ok && EqualPattern(x.Param, y.Param) && EqualPattern(x.Body, y.Body)
	case PApply:
		y, ok := b.(PApply)
		return ok && EqualPattern(x.Fn, y.Fn) && EqualPattern(x.Arg, y.Arg)
	default:
		return false
	}
}

func equalPatterns(a, b []Pattern) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !EqualPattern(a[i], b[i]) {
			return false
		}
	}
	return true
}
