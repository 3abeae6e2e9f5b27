package fields

// Parse parses a field selection such as "id,owner(id,name)".
// Unbalanced input yields a partial tree rather than an error.
func Parse(s string) []Node {
	return ParseTokens(Tokenize(s))
}

// ReadField returns the first field of s, or nil when s selects nothing
func ReadField(s string) Node {
	nodes := Parse(s)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// ParseTokens builds the field tree from lexer tokens
func ParseTokens(tokens []string) []Node {
	var curr []Node
	var stack [][]Node
	for _, tok := range tokens {
		switch tok {
		case LParen:
			stack = append(stack, curr)
			curr = nil
		case RParen:
			var parent []Node
			if n := len(stack); n > 0 {
				parent = stack[n-1]
				stack = stack[:n-1]
			}
			key := ""
			if n := len(parent); n > 0 {
				key = parent[n-1].FieldName()
				parent = parent[:n-1]
			}
			curr = append(parent, Branch{Name: key, Children: curr})
		default:
			curr = append(curr, Leaf{Name: tok})
		}
	}
	return curr
}
