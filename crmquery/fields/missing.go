package fields

// Schema is a set of known fields for one entity type.
// Lookup returns the schema of the field's associated entity, nil when the
// field is a plain value.
type Schema interface {
	Lookup(name string) (Schema, bool)
}

// Missing returns the subset of requested that schema does not know yet.
// A nil schema means nothing is known and requested is returned as is.
func Missing(requested []Node, schema Schema) []Node {
	if schema == nil {
		return requested
	}
	var out []Node
	for _, n := range requested {
		sub, ok := schema.Lookup(n.FieldName())
		if !ok {
			out = append(out, n)
			continue
		}
		b, isBranch := n.(Branch)
		if !isBranch || len(b.Children) == 0 {
			continue
		}
		if rest := Missing(b.Children, sub); len(rest) > 0 {
			out = append(out, Branch{Name: b.Name, Children: rest})
		}
	}
	return out
}

// MissingString is Missing over a field selection string
func MissingString(spec string, schema Schema) string {
	if schema == nil {
		return spec
	}
	return String(Missing(Parse(spec), schema))
}
