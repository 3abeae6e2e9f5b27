package where

// Expr represents a compiled boolean expression
type Expr interface {
	isExpr()
}

// And joins its terms with AND
type And struct {
	Terms []Expr
}

func (And) isExpr() {}

// Or joins its terms with OR and always renders parenthesized
type Or struct {
	Terms []Expr
}

func (Or) isExpr() {}

// Not wraps an expression as NOT (...)
type Not struct {
	Inner Expr
}

func (Not) isExpr() {}

// Group forces parentheses around its inner expression
type Group struct {
	Inner Expr
}

func (Group) isExpr() {}

// Clause is a single field comparison.
// Value holds the already formatted right-hand side for the clause's dialect.
type Clause struct {
	Field string
	Op    Op
	Value string
	Sub   Expr // OpLookup only
}

func (Clause) isExpr() {}

// Op is a clause operator
type Op int

const (
	// query dialect
	OpEq Op = iota
	OpNe
	OpGte
	OpLt
	OpIn
	OpNotIn
	OpIsNull
	OpIsNotNull
	OpIsEmpty
	OpIsNotEmpty
	OpLike
	OpMemberOf
	OpNotMemberOf

	// search dialect
	OpMatch
	OpMatchSpaced
	OpProhibit
	OpLookup
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpIsEmpty:
		return "IS EMPTY"
	case OpIsNotEmpty:
		return "IS NOT EMPTY"
	case OpLike:
		return "like"
	case OpMemberOf:
		return "MEMBER OF"
	case OpNotMemberOf:
		return "NOT MEMBER OF"
	case OpMatch, OpLookup:
		return ":"
	case OpMatchSpaced:
		return ": "
	case OpProhibit:
		return "-"
	default:
		return "?"
	}
}

// Negate returns the inverse comparison for the query dialect.
// Operators without an inverse are returned unchanged.
func (op Op) Negate() Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpGte:
		return OpLt
	case OpLt:
		return OpGte
	case OpIn:
		return OpNotIn
	case OpNotIn:
		return OpIn
	case OpMemberOf:
		return OpNotMemberOf
	case OpNotMemberOf:
		return OpMemberOf
	default:
		return op
	}
}

// isEmpty reports whether e renders to nothing
func isEmpty(e Expr) bool {
	switch x := e.(type) {
	case nil:
		return true
	case And:
		for _, t := range x.Terms {
			if !isEmpty(t) {
				return false
			}
		}
		return true
	case Or:
		for _, t := range x.Terms {
			if !isEmpty(t) {
				return false
			}
		}
		return true
	case Not:
		return isEmpty(x.Inner)
	case Group:
		return isEmpty(x.Inner)
	default:
		return false
	}
}

// and collapses a clause list: nothing, a single term, or an And
func and(terms []Expr) Expr {
	var kept []Expr
	for _, t := range terms {
		if !isEmpty(t) {
			kept = append(kept, t)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Terms: kept}
	}
}

// orOf turns the top-level AND terms of e into an OR group
func orOf(e Expr) Expr {
	switch x := e.(type) {
	case nil:
		return nil
	case And:
		return Or{Terms: x.Terms}
	default:
		if isEmpty(e) {
			return nil
		}
		return Or{Terms: []Expr{e}}
	}
}
