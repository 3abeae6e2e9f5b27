package where

import "strings"

func searchTerms(spec Spec) Expr {
	terms := make([]Expr, 0, len(spec))
	for _, e := range spec {
		if e.Key == "or" {
			if obj, ok := asObject(e.Value); ok {
				terms = append(terms, orOf(searchTerms(obj)))
			}
			continue
		}
		terms = append(terms, searchField(e.Key, e.Value))
	}
	return and(terms)
}

// searchField compiles one field's value in the search dialect.
// Negation wraps the inner result in NOT rather than flipping operators.
func searchField(key string, value any) Expr {
	if value == nil {
		return nil
	}
	if list, ok := asList(value); ok {
		return Clause{Field: key, Op: OpMatch, Value: searchList(list)}
	}
	obj, ok := asObject(value)
	if !ok {
		if s, isString := value.(string); isString && strings.Contains(s, "*") {
			return Clause{Field: key, Op: OpMatch, Value: "(" + s + ")"}
		}
		return Clause{Field: key, Op: OpMatch, Value: searchLiteral(value)}
	}

	var terms []Expr
	lo, hasMin := present(obj, "min")
	hi, hasMax := present(obj, "max")
	if hasMin || hasMax {
		terms = append(terms, Clause{Field: key, Op: OpMatch, Value: "[" + bound(lo, hasMin) + " TO " + bound(hi, hasMax) + "]"})
	}
	if v, _ := obj.Get("any"); v != nil {
		if list, ok := asList(v); ok {
			terms = append(terms, Clause{Field: key, Op: OpMatch, Value: quotedTerms(list, " ")})
		}
	}
	if v, _ := obj.Get("all"); v != nil {
		if list, ok := asList(v); ok {
			terms = append(terms, Clause{Field: key, Op: OpMatch, Value: quotedTerms(list, " AND ")})
		}
	}
	if v, _ := obj.Get("not"); truthy(v) {
		if inner := searchField(key, v); !isEmpty(inner) {
			terms = append(terms, Not{Inner: inner})
		}
	}
	if v, _ := obj.Get("like"); truthy(v) {
		terms = append(terms, Clause{Field: key, Op: OpMatch, Value: "(" + text(v) + "*)"})
	}
	if v, _ := obj.Get("lookup"); truthy(v) {
		if sub, ok := asObject(v); ok {
			terms = append(terms, Clause{Field: key, Op: OpLookup, Sub: queryTerms(sub)})
		}
	}
	if v, _ := obj.Get("with"); truthy(v) {
		terms = append(terms, Clause{Field: key + ".id", Op: OpMatch, Value: `"[0 TO *]"`})
	}
	if v, _ := obj.Get("without"); truthy(v) {
		terms = append(terms, Clause{Field: key + ".id", Op: OpProhibit, Value: `"[0 TO *]"`})
	}
	if v, _ := obj.Get("or"); truthy(v) {
		terms = append(terms, orOf(searchField(key, v)))
	}
	if v, _ := obj.Get("memberOf"); truthy(v) {
		list, ok := asList(v)
		if !ok {
			list = []any{v}
		}
		if len(list) > 0 {
			terms = append(terms, Clause{Field: key + ".id", Op: OpMatchSpaced, Value: searchList(list)})
		}
	}
	for _, e := range obj {
		if reserved[e.Key] {
			continue
		}
		terms = append(terms, searchField(key+"."+e.Key, e.Value))
	}
	return and(terms)
}

// bound formats one end of a range; an absent end is open
func bound(v any, ok bool) string {
	if !ok {
		return "*"
	}
	return searchLiteral(v)
}
