package query

import "strings"

// Op enumerates the leaf comparison operators the analytical store supports.
type Op int

const (
	OpEq Op = iota
	OpContains
	OpPrefix
	OpSuffix
	OpRegex
	OpIn
)

// Node is one node of a predicate tree. Trees are built by the compiler and
// rendered to store SQL with placeholder args only at the repository boundary,
// so values never end up concatenated into query text.
type Node interface {
	render(sb *strings.Builder, args *[]any)
}

// Cond is a leaf comparison against a single column. Column names always come
// from the closed field set, never from client input.
type Cond struct {
	Column string
	Op     Op
	Value  string
	Values []string
}

func (c Cond) render(sb *strings.Builder, args *[]any) {
	switch c.Op {
	case OpEq:
		sb.WriteString(c.Column)
		sb.WriteString(" = ?")
		*args = append(*args, c.Value)
	case OpContains:
		sb.WriteString(c.Column)
		sb.WriteString(" ILIKE ?")
		*args = append(*args, "%"+c.Value+"%")
	case OpPrefix:
		sb.WriteString(c.Column)
		sb.WriteString(" ILIKE ?")
		*args = append(*args, c.Value+"%")
	case OpSuffix:
		sb.WriteString(c.Column)
		sb.WriteString(" ILIKE ?")
		*args = append(*args, "%"+c.Value)
	case OpRegex:
		sb.WriteString("match(")
		sb.WriteString(c.Column)
		sb.WriteString(", ?)")
		*args = append(*args, c.Value)
	case OpIn:
		sb.WriteString(c.Column)
		sb.WriteString(" IN (")
		for i, v := range c.Values {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("?")
			*args = append(*args, v)
		}
		sb.WriteString(")")
	}
}

type group struct {
	operator string
	children []Node
}

func (g group) render(sb *strings.Builder, args *[]any) {
	sb.WriteString("(")
	for i, child := range g.children {
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(g.operator)
			sb.WriteString(" ")
		}
		child.render(sb, args)
	}
	sb.WriteString(")")
}

type negation struct {
	child Node
}

func (n negation) render(sb *strings.Builder, args *[]any) {
	sb.WriteString("NOT ")
	n.child.render(sb, args)
}

// Leaf constructors.

func Eq(column, value string) Node       { return Cond{Column: column, Op: OpEq, Value: value} }
func Contains(column, value string) Node { return Cond{Column: column, Op: OpContains, Value: value} }
func Prefix(column, value string) Node   { return Cond{Column: column, Op: OpPrefix, Value: value} }
func Suffix(column, value string) Node   { return Cond{Column: column, Op: OpSuffix, Value: value} }
func Regex(column, pattern string) Node  { return Cond{Column: column, Op: OpRegex, Value: pattern} }
func In(column string, values []string) Node {
	return Cond{Column: column, Op: OpIn, Values: values}
}

// And combines nodes so that all must match. A single child still renders
// inside parentheses, keeping the top-level operator unambiguous.
func And(nodes ...Node) Node { return group{operator: "AND", children: nodes} }

// Or combines nodes so that any may match.
func Or(nodes ...Node) Node { return group{operator: "OR", children: nodes} }

// Not inverts a node. Used by the mobile expansion to exclude rows already
// found as direct matches.
func Not(node Node) Node { return negation{child: node} }

// Predicate is a complete, renderable filter tree.
type Predicate struct {
	root Node
}

// NewPredicate wraps a root node. Group nodes render their own parentheses;
// bare leaves are wrapped so the output is always a single group.
func NewPredicate(root Node) *Predicate {
	if _, ok := root.(group); !ok {
		root = group{operator: "AND", children: []Node{root}}
	}
	return &Predicate{root: root}
}

// And returns a new predicate matching rows that satisfy both p and other.
func (p *Predicate) And(other *Predicate) *Predicate {
	return &Predicate{root: group{operator: "AND", children: []Node{p.root, other.root}}}
}

// SQL renders the predicate to a WHERE-clause fragment plus positional args.
func (p *Predicate) SQL() (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, 8)
	p.root.render(&sb, &args)
	return sb.String(), args
}
