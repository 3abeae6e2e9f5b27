package where

func queryTerms(spec Spec) Expr {
	terms := make([]Expr, 0, len(spec))
	for _, e := range spec {
		if e.Key == "or" {
			if obj, ok := asObject(e.Value); ok {
				terms = append(terms, orOf(queryTerms(obj)))
			}
			continue
		}
		terms = append(terms, queryField(e.Key, e.Value, false))
	}
	return and(terms)
}

// queryField compiles one field's value. neg inverts the comparison
// operators of literals, lists, ranges and membership tests.
func queryField(key string, value any, neg bool) Expr {
	if value == nil {
		return nil
	}
	if list, ok := asList(value); ok {
		return Clause{Field: key, Op: flip(OpIn, neg), Value: "(" + queryList(list) + ")"}
	}
	obj, ok := asObject(value)
	if !ok {
		return Clause{Field: key, Op: flip(OpEq, neg), Value: queryLiteral(value)}
	}

	var terms []Expr
	if v, ok := obj.Get("isNull"); ok {
		if b, isBool := v.(bool); isBool {
			op := OpIsNotNull
			if b {
				op = OpIsNull
			}
			terms = append(terms, Clause{Field: key, Op: op})
		}
	}
	if v, ok := present(obj, "min"); ok {
		terms = append(terms, Clause{Field: key, Op: flip(OpGte, neg), Value: queryLiteral(v)})
	}
	if v, ok := present(obj, "max"); ok {
		terms = append(terms, Clause{Field: key, Op: flip(OpLt, neg), Value: queryLiteral(v)})
	}
	for _, k := range []string{"any", "all"} {
		v, _ := obj.Get(k)
		if list, ok := asList(v); ok {
			terms = append(terms, Clause{Field: key, Op: flip(OpIn, neg), Value: "(" + queryList(list) + ")"})
		}
	}
	if v, _ := obj.Get("not"); truthy(v) {
		terms = append(terms, queryField(key, v, !neg))
	}
	if v, _ := obj.Get("like"); truthy(v) {
		terms = append(terms, Clause{Field: key, Op: OpLike, Value: "'%" + text(v) + "%'"})
	}
	if v, _ := obj.Get("lookup"); truthy(v) {
		terms = append(terms, queryField(key, v, false))
	}
	if v, _ := obj.Get("with"); truthy(v) {
		terms = append(terms, Clause{Field: key, Op: OpIsNotEmpty})
	}
	if v, _ := obj.Get("without"); truthy(v) {
		terms = append(terms, Clause{Field: key, Op: OpIsEmpty})
	}
	if v, _ := obj.Get("or"); truthy(v) {
		terms = append(terms, orOf(queryField(key, v, false)))
	}
	if v, _ := obj.Get("orMinMax"); truthy(v) {
		terms = append(terms, queryOrMinMax(key, v, neg))
	}
	if v, _ := obj.Get("memberOf"); truthy(v) {
		terms = append(terms, queryMemberOf(key, v, neg))
	}
	for _, e := range obj {
		if reserved[e.Key] {
			continue
		}
		terms = append(terms, queryField(key+"."+e.Key, e.Value, false))
	}
	return and(terms)
}

// queryOrMinMax ORs independently compiled alternatives for one field
func queryOrMinMax(key string, value any, neg bool) Expr {
	var alts []any
	if list, ok := asList(value); ok {
		alts = list
	} else if obj, ok := asObject(value); ok {
		for _, e := range obj {
			alts = append(alts, e.Value)
		}
	} else {
		return nil
	}
	var terms []Expr
	for _, alt := range alts {
		e := queryField(key, alt, neg)
		if isEmpty(e) {
			continue
		}
		terms = append(terms, Group{Inner: e})
	}
	if len(terms) == 0 {
		return nil
	}
	return Or{Terms: terms}
}

func queryMemberOf(key string, value any, neg bool) Expr {
	list, ok := asList(value)
	if !ok {
		list = []any{value}
	}
	terms := make([]Expr, 0, len(list))
	for _, v := range list {
		terms = append(terms, Clause{Field: key, Op: flip(OpMemberOf, neg), Value: queryLiteral(v)})
	}
	if len(terms) == 0 {
		return nil
	}
	if neg {
		return Group{Inner: And{Terms: terms}}
	}
	return Or{Terms: terms}
}

func flip(op Op, neg bool) Op {
	if neg {
		return op.Negate()
	}
	return op
}

