package fields

import "strings"

// Node is a field selection entry
type Node interface {
	isNode()
	// FieldName returns the field the node selects
	FieldName() string
}

// Leaf selects a single field
type Leaf struct {
	Name string
}

func (Leaf) isNode() {}

func (l Leaf) FieldName() string { return l.Name }

// Branch selects a field together with sub-fields of its associated entity
type Branch struct {
	Name     string
	Children []Node
}

func (Branch) isNode() {}

func (b Branch) FieldName() string { return b.Name }

// String serializes nodes back to a field selection
func String(nodes []Node) string {
	var sb strings.Builder
	write(&sb, nodes)
	return sb.String()
}

func write(sb *strings.Builder, nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch x := n.(type) {
		case Leaf:
			sb.WriteString(x.Name)
		case Branch:
			sb.WriteString(x.Name)
			sb.WriteByte('(')
			write(sb, x.Children)
			sb.WriteByte(')')
		}
	}
}

// Names returns the field name of each node
func Names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.FieldName()
	}
	return out
}
