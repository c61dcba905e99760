package conditions

import "github.com/jihwankim/spectrum-utils/pkg/parameters"

// Compound conditions reference their children by name and resolve them
// through the dictionary on every evaluation. A name that no longer
// resolves is a deleted child; the evaluation rules below spell out how
// each form treats one.

// Not negates its child. A deleted child evaluates false, not true:
// the negation of an unknowable predicate is still unknowable, and the
// lattice resolves unknowable to reject.
type Not struct {
	cacheCell
	noFold
	child string
}

// NewNot creates the negation of the named condition.
func NewNot(child string) *Not { return &Not{child: child} }

func (n *Not) Evaluate(d *Dictionary, e *parameters.FlatEvent) bool {
	child := d.Lookup(n.child)
	if child == nil {
		return false
	}
	return !d.check(child, e)
}

func (n *Not) Type() string           { return "Not" }
func (n *Not) Points() []Point        { return nil }
func (n *Not) Dependencies() []string { return []string{n.child} }

// And accepts when every child accepts, short-circuiting on the first
// rejection. A deleted child rejects and terminates the walk. An And
// created with no children accepts (vacuous truth).
type And struct {
	cacheCell
	noFold
	children []string
}

// NewAnd creates the conjunction of the named conditions.
func NewAnd(children []string) *And {
	owned := make([]string, len(children))
	copy(owned, children)
	return &And{children: owned}
}

func (a *And) Evaluate(d *Dictionary, e *parameters.FlatEvent) bool {
	for _, name := range a.children {
		child := d.Lookup(name)
		if child == nil || !d.check(child, e) {
			return false
		}
	}
	return true
}

func (a *And) Type() string           { return "And" }
func (a *And) Points() []Point        { return nil }
func (a *And) Dependencies() []string { return a.children }

// Or accepts when any surviving child accepts, short-circuiting on the
// first acceptance. Deleted children are skipped; with children defined
// but none surviving, or all survivors rejecting, the Or rejects. An Or
// created with no children accepts, mirroring And's vacuous logic.
type Or struct {
	cacheCell
	noFold
	children []string
}

// NewOr creates the disjunction of the named conditions.
func NewOr(children []string) *Or {
	owned := make([]string, len(children))
	copy(owned, children)
	return &Or{children: owned}
}

func (o *Or) Evaluate(d *Dictionary, e *parameters.FlatEvent) bool {
	if len(o.children) == 0 {
		return true
	}
	for _, name := range o.children {
		child := d.Lookup(name)
		if child == nil {
			continue
		}
		if d.check(child, e) {
			return true
		}
	}
	return false
}

func (o *Or) Type() string           { return "Or" }
func (o *Or) Points() []Point        { return nil }
func (o *Or) Dependencies() []string { return o.children }
