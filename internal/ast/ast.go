// Package ast defines the tree produced by internal/parser: word definitions,
// literals, control constructs, and top-level declarations, per spec sec 3.
package ast

import (
	"strconv"
	"strings"
)

// StepVariant distinguishes DO...LOOP from DO...+LOOP.
type StepVariant int

const (
	Loop StepVariant = iota
	PlusLoop
)

func (s StepVariant) String() string {
	if s == PlusLoop {
		return "+LOOP"
	}
	return "LOOP"
}

// Node is any element of a word body or the top-level program: a literal
// push, a reference to another word, or a control construct. It is a tagged
// variant in the spirit of spec sec 3; Go expresses the tag via a type
// switch on the concrete implementing type rather than an explicit Kind
// field, matching the way tunascript/syntax.AST models a node set with a
// NodeType enum only where disambiguation can't come from the type system --
// here it always can.
type Node interface {
	// Pos returns the 1-indexed line/column the node's first token appeared
	// at, for diagnostics that need to point back at surface syntax.
	Pos() (line, col int)

	// String renders the node as indented pseudo-source, used for debug
	// dumps and the parse/pretty-print/reparse round-trip property.
	String() string

	// Equal reports whether two nodes are structurally identical.
	Equal(o Node) bool

	isNode()
}

type NodeBase struct {
	Line, Col int
}

func (b NodeBase) Pos() (int, int) { return b.Line, b.Col }
func (NodeBase) isNode()           {}

// At constructs a NodeBase for a node originating at the given source
// position, for use by internal/parser when building nodes.
func At(line, col int) NodeBase {
	return NodeBase{Line: line, Col: col}
}

// LiteralKind distinguishes the payload of a Literal node.
type LiteralKind int

const (
	IntLiteral LiteralKind = iota
	FloatLiteral
	StringLiteral
)

// Literal pushes a constant value onto the data stack.
type Literal struct {
	NodeBase
	Kind   LiteralKind
	Int    int64
	Float  float64
	Str    string
}

func (l *Literal) String() string {
	switch l.Kind {
	case IntLiteral:
		return strconv.FormatInt(l.Int, 10)
	case FloatLiteral:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case StringLiteral:
		return `." ` + l.Str + `"`
	}
	return "<bad-literal>"
}

func (l *Literal) Equal(o Node) bool {
	ol, ok := o.(*Literal)
	if !ok {
		return false
	}
	return l.Kind == ol.Kind && l.Int == ol.Int && l.Float == ol.Float && l.Str == ol.Str
}

// WordRef is an unresolved (until sema) reference to a word by name --
// either a user-defined word or a backend-known primitive.
type WordRef struct {
	NodeBase
	Name string
}

func (w *WordRef) String() string     { return w.Name }
func (w *WordRef) Equal(o Node) bool {
	ow, ok := o.(*WordRef)
	return ok && w.Name == ow.Name
}

// Recurse refers to the word currently being defined.
type Recurse struct{ NodeBase }

func (r *Recurse) String() string  { return "RECURSE" }
func (r *Recurse) Equal(o Node) bool {
	_, ok := o.(*Recurse)
	return ok
}

// Exit ends execution of the enclosing definition immediately.
type Exit struct{ NodeBase }

func (e *Exit) String() string  { return "EXIT" }
func (e *Exit) Equal(o Node) bool {
	_, ok := o.(*Exit)
	return ok
}

// If is `IF then-branch THEN` or `IF then-branch ELSE else-branch THEN`.
type If struct {
	NodeBase
	Then []Node
	Else []Node // nil if no ELSE clause
}

func (n *If) String() string {
	var sb strings.Builder
	sb.WriteString("IF\n")
	sb.WriteString(indentBody(n.Then))
	if n.Else != nil {
		sb.WriteString("\nELSE\n")
		sb.WriteString(indentBody(n.Else))
	}
	sb.WriteString("\nTHEN")
	return sb.String()
}

func (n *If) Equal(o Node) bool {
	on, ok := o.(*If)
	if !ok {
		return false
	}
	return equalBodies(n.Then, on.Then) && equalBodies(n.Else, on.Else)
}

// BeginUntil is `BEGIN body UNTIL`.
type BeginUntil struct {
	NodeBase
	Body []Node
}

func (n *BeginUntil) String() string {
	return "BEGIN\n" + indentBody(n.Body) + "\nUNTIL"
}

func (n *BeginUntil) Equal(o Node) bool {
	on, ok := o.(*BeginUntil)
	return ok && equalBodies(n.Body, on.Body)
}

// BeginWhileRepeat is `BEGIN cond WHILE body REPEAT`.
type BeginWhileRepeat struct {
	NodeBase
	Cond []Node
	Body []Node
}

func (n *BeginWhileRepeat) String() string {
	return "BEGIN\n" + indentBody(n.Cond) + "\nWHILE\n" + indentBody(n.Body) + "\nREPEAT"
}

func (n *BeginWhileRepeat) Equal(o Node) bool {
	on, ok := o.(*BeginWhileRepeat)
	return ok && equalBodies(n.Cond, on.Cond) && equalBodies(n.Body, on.Body)
}

// DoLoop is `DO body LOOP` or `DO body +LOOP`.
type DoLoop struct {
	NodeBase
	Body        []Node
	StepVariant StepVariant
}

func (n *DoLoop) String() string {
	return "DO\n" + indentBody(n.Body) + "\n" + n.StepVariant.String()
}

func (n *DoLoop) Equal(o Node) bool {
	on, ok := o.(*DoLoop)
	return ok && n.StepVariant == on.StepVariant && equalBodies(n.Body, on.Body)
}

// Variable declares a named memory cell, backed by a backend allocation.
type Variable struct {
	NodeBase
	Name string
}

func (n *Variable) String() string { return "VARIABLE " + n.Name }
func (n *Variable) Equal(o Node) bool {
	on, ok := o.(*Variable)
	return ok && n.Name == on.Name
}

// Constant declares a named immutable value, resolved at compile time.
type Constant struct {
	NodeBase
	Name  string
	Value *Literal
}

func (n *Constant) String() string {
	return n.Value.String() + " CONSTANT " + n.Name
}

func (n *Constant) Equal(o Node) bool {
	on, ok := o.(*Constant)
	return ok && n.Name == on.Name && n.Value.Equal(on.Value)
}

// Definition is a `: NAME ... ;` word definition.
type Definition struct {
	NodeBase
	Name          string
	DeclaredEffect *DeclaredEffect // nil if no stack-effect comment was given
	Body          []Node
	Immediate     bool
}

// DeclaredEffect is the parsed `( a b -- c )` attached to a Definition.
// Symbolic names carry no meaning beyond arity (spec sec 6.2); they are kept
// so diagnostics can echo the names the author chose.
type DeclaredEffect struct {
	Inputs  []string
	Outputs []string
}

func (d *Definition) String() string {
	var sb strings.Builder
	sb.WriteString(": ")
	sb.WriteString(d.Name)
	if d.DeclaredEffect != nil {
		sb.WriteString(" ( ")
		sb.WriteString(strings.Join(d.DeclaredEffect.Inputs, " "))
		sb.WriteString(" -- ")
		sb.WriteString(strings.Join(d.DeclaredEffect.Outputs, " "))
		sb.WriteString(" )")
	}
	sb.WriteString("\n")
	sb.WriteString(indentBody(d.Body))
	sb.WriteString("\n;")
	if d.Immediate {
		sb.WriteString(" IMMEDIATE")
	}
	return sb.String()
}

func (d *Definition) Equal(o Node) bool {
	od, ok := o.(*Definition)
	if !ok {
		return false
	}
	if d.Name != od.Name || d.Immediate != od.Immediate {
		return false
	}
	if (d.DeclaredEffect == nil) != (od.DeclaredEffect == nil) {
		return false
	}
	if d.DeclaredEffect != nil {
		if !stringsEqual(d.DeclaredEffect.Inputs, od.DeclaredEffect.Inputs) ||
			!stringsEqual(d.DeclaredEffect.Outputs, od.DeclaredEffect.Outputs) {
			return false
		}
	}
	return equalBodies(d.Body, od.Body)
}

// Program is an entire compilation unit: zero or more word definitions, zero
// or more top-level Variable/Constant declarations, and a top-level body
// (code outside any definition) that forms the implicit entry word.
type Program struct {
	Definitions []*Definition
	TopLevel    []Node
}

func (p *Program) String() string {
	var parts []string
	for _, d := range p.Definitions {
		parts = append(parts, d.String())
	}
	if len(p.TopLevel) > 0 {
		parts = append(parts, indentBody(p.TopLevel))
	}
	return strings.Join(parts, "\n\n")
}

func (p *Program) Equal(o *Program) bool {
	if len(p.Definitions) != len(o.Definitions) {
		return false
	}
	for i := range p.Definitions {
		if !p.Definitions[i].Equal(o.Definitions[i]) {
			return false
		}
	}
	return equalBodies(p.TopLevel, o.TopLevel)
}

func equalBodies(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// indentBody renders a body as one line per node, indented one level. The
// indentation scheme mirrors tunascript/syntax's spaceIndentNewlines: every
// line of output (including newlines a nested node's own multi-line String()
// introduces) is padded by the same amount, so nesting composes correctly
// however deep it goes.
func indentBody(body []Node) string {
	var lines []string
	for _, n := range body {
		lines = append(lines, n.String())
	}
	joined := strings.Join(lines, "\n")
	return spaceIndentNewlines("  "+joined, 2)
}

func spaceIndentNewlines(str string, amount int) string {
	if strings.Contains(str, "\n") {
		pad := strings.Repeat(" ", amount)
		str = strings.ReplaceAll(str, "\n", "\n"+pad)
	}
	return str
}
