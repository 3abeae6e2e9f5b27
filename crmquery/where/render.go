package where

import "strings"

// Render serializes an expression tree to its wire text
func Render(e Expr) string {
	var b strings.Builder
	render(&b, e)
	return b.String()
}

func render(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case nil:
	case And:
		first := true
		renderAnd(b, x, &first)
	case Or:
		b.WriteByte('(')
		first := true
		for _, t := range x.Terms {
			if isEmpty(t) {
				continue
			}
			if !first {
				b.WriteString(" OR ")
			}
			first = false
			if inner, ok := t.(And); ok && len(inner.Terms) > 1 {
				b.WriteByte('(')
				render(b, inner)
				b.WriteByte(')')
				continue
			}
			render(b, t)
		}
		b.WriteByte(')')
	case Not:
		b.WriteString("NOT (")
		render(b, x.Inner)
		b.WriteByte(')')
	case Group:
		b.WriteByte('(')
		render(b, x.Inner)
		b.WriteByte(')')
	case Clause:
		renderClause(b, x)
	}
}

// renderAnd flattens nested And terms into one AND chain
func renderAnd(b *strings.Builder, a And, first *bool) {
	for _, t := range a.Terms {
		if isEmpty(t) {
			continue
		}
		if inner, ok := t.(And); ok {
			renderAnd(b, inner, first)
			continue
		}
		if !*first {
			b.WriteString(" AND ")
		}
		*first = false
		render(b, t)
	}
}

func renderClause(b *strings.Builder, c Clause) {
	switch c.Op {
	case OpEq, OpNe, OpGte, OpLt, OpMatch, OpMatchSpaced:
		b.WriteString(c.Field)
		b.WriteString(c.Op.String())
		b.WriteString(c.Value)
	case OpIn, OpNotIn, OpLike:
		b.WriteString(c.Field)
		b.WriteByte(' ')
		b.WriteString(c.Op.String())
		b.WriteByte(' ')
		b.WriteString(c.Value)
	case OpIsNull, OpIsNotNull, OpIsEmpty, OpIsNotEmpty:
		b.WriteString(c.Field)
		b.WriteByte(' ')
		b.WriteString(c.Op.String())
	case OpMemberOf, OpNotMemberOf:
		b.WriteString(c.Value)
		b.WriteByte(' ')
		b.WriteString(c.Op.String())
		b.WriteByte(' ')
		b.WriteString(c.Field)
	case OpProhibit:
		b.WriteByte('-')
		b.WriteString(c.Field)
		b.WriteByte(':')
		b.WriteString(c.Value)
	case OpLookup:
		b.WriteString(c.Field)
		b.WriteString(`:"^(`)
		render(b, c.Sub)
		b.WriteString(`)"`)
	}
}
