package ir

// Pattern is the structural shape a rule or match arm tests an expression
// against.
type Pattern interface {
	isPattern()
}

// Wildcard matches anything and binds nothing.
type Wildcard struct{}

// PVar matches anything and binds Name.
type PVar struct {
	Name string
}

// PLit matches a literal equal to Value.
type PLit struct {
	Value Literal
}

// Bind binds Name to the whole expression when Sub also matches it.
type Bind struct {
	Name string
	Sub  Pattern
}

// PTuple matches a Tuple of the same arity element-wise.
type PTuple struct {
	Items []Pattern
}

// PList matches a List of the same length element-wise.
type PList struct {
	Items []Pattern
}

// PRecord matches a Record that has at least the named fields.
type PRecord struct {
	Fields map[string]Pattern
}

// SortedFields returns field names in canonical key order.
func (r PRecord) SortedFields() []string {
	return sortedKeys(r.Fields)
}

// Constructor matches an application chain whose head is Var(Name) and whose
// arguments match Args pairwise. With no Args it matches Var(Name) itself.
type Constructor struct {
	Name string
	Args []Pattern
}

// PLambda matches a Lambda. Param is matched against Var(param).
type PLambda struct {
	Param Pattern
	Body  Pattern
}

// PApply matches Apply and LinearApply.
type PApply struct {
	Fn  Pattern
	Arg Pattern
}

func (Wildcard) isPattern()    {}
func (PVar) isPattern()        {}
func (PLit) isPattern()        {}
func (Bind) isPattern()        {}
func (PTuple) isPattern()      {}
func (PList) isPattern()       {}
func (PRecord) isPattern()     {}
func (Constructor) isPattern() {}
func (PLambda) isPattern()     {}
func (PApply) isPattern()      {}
