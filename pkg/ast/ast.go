// Package ast defines the types used to represent the Abstract Syntax Tree.
package ast

import (
	"github.com/orion-lang/orion/pkg/token"
	"github.com/orion-lang/orion/pkg/types"
)

// NodeType defines the kind of a node in the AST.
type NodeType int

const (
	// Expressions
	IntLit NodeType = iota
	FloatLit
	StringLit
	BoolLit
	Ident
	BinaryOp
	UnaryOp
	Call
	Index
	Tuple
	ListLit
	DictLit

	// Statements
	VarDecl
	FnDecl
	Block
	ExprStmt
	If
	While
	ForIn
	Return
	Break
	Continue
	Pass
	TupleAssign
	Global
	Local
	StructDecl
	EnumDecl

	// Root
	Program
)

// Node represents a node in the Abstract Syntax Tree. Every node carries
// the token it was built from for diagnostics.
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
}

// --- Node Data Structs ---

type IntLitNode struct{ Value int64 }
type FloatLitNode struct{ Value float64 }
type StringLitNode struct{ Value string }
type BoolLitNode struct{ Value bool }
type IdentNode struct{ Name string }
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type CallNode struct {
	Name string
	Args []*Node
}
type IndexNode struct{ Object, Key *Node }
type TupleNode struct{ Elements []*Node }
type ListLitNode struct{ Elements []*Node }

type DictPair struct{ Key, Value *Node }
type DictLitNode struct{ Pairs []DictPair }

type VarDeclNode struct {
	Name         string
	VarType      types.Type
	Init         *Node
	ExplicitType bool
}

// Param is one function parameter; Explicit is false when the type was
// omitted and inferred as Unknown.
type Param struct {
	Name     string
	Type     types.Type
	Explicit bool
}

// FnDeclNode is a function declaration. Exactly one of Body and Expr is
// set: Expr for '=>' single-expression functions, Body otherwise.
type FnDeclNode struct {
	Name               string
	Params             []Param
	ReturnType         types.Type
	Body               []*Node
	Expr               *Node
	IsSingleExpression bool
}

type BlockNode struct{ Stmts []*Node }
type ExprStmtNode struct{ Expr *Node }
type IfNode struct{ Cond, Then, Else *Node }
type WhileNode struct{ Cond, Body *Node }
type ForInNode struct {
	Var      string
	Iterable *Node
	Body     *Node
}
type ReturnNode struct{ Value *Node }
type BreakNode struct{}
type ContinueNode struct{}
type PassNode struct{}
type TupleAssignNode struct{ Targets, Values []*Node }
type GlobalNode struct{ Names []string }
type LocalNode struct{ Names []string }

type StructField struct {
	Name string
	Type types.Type
}
type StructDeclNode struct {
	Name   string
	Fields []StructField
}

type EnumValue struct {
	Name  string
	Value int64
}
type EnumDeclNode struct {
	Name   string
	Values []EnumValue
}

type ProgramNode struct{ Stmts []*Node }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Data: data}
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func NewIntLit(tok token.Token, value int64) *Node {
	return newNode(tok, IntLit, IntLitNode{Value: value})
}
func NewFloatLit(tok token.Token, value float64) *Node {
	return newNode(tok, FloatLit, FloatLitNode{Value: value})
}
func NewStringLit(tok token.Token, value string) *Node {
	return newNode(tok, StringLit, StringLitNode{Value: value})
}
func NewBoolLit(tok token.Token, value bool) *Node {
	return newNode(tok, BoolLit, BoolLitNode{Value: value})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right}, left, right)
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr}, expr)
}
func NewCall(tok token.Token, name string, args []*Node) *Node {
	node := newNode(tok, Call, CallNode{Name: name, Args: args})
	for _, arg := range args {
		arg.Parent = node
	}
	return node
}
func NewIndex(tok token.Token, object, key *Node) *Node {
	return newNode(tok, Index, IndexNode{Object: object, Key: key}, object, key)
}
func NewTuple(tok token.Token, elements []*Node) *Node {
	node := newNode(tok, Tuple, TupleNode{Elements: elements})
	for _, e := range elements {
		e.Parent = node
	}
	return node
}
func NewListLit(tok token.Token, elements []*Node) *Node {
	node := newNode(tok, ListLit, ListLitNode{Elements: elements})
	for _, e := range elements {
		e.Parent = node
	}
	return node
}
func NewDictLit(tok token.Token, pairs []DictPair) *Node {
	node := newNode(tok, DictLit, DictLitNode{Pairs: pairs})
	for _, p := range pairs {
		p.Key.Parent = node
		p.Value.Parent = node
	}
	return node
}
func NewVarDecl(tok token.Token, name string, varType types.Type, init *Node, explicit bool) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, VarType: varType, Init: init, ExplicitType: explicit}, init)
}
func NewFnDecl(tok token.Token, data FnDeclNode) *Node {
	node := newNode(tok, FnDecl, data, data.Expr)
	for _, s := range data.Body {
		if s != nil {
			s.Parent = node
		}
	}
	return node
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	node := newNode(tok, Block, BlockNode{Stmts: stmts})
	for _, s := range stmts {
		if s != nil {
			s.Parent = node
		}
	}
	return node
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr}, expr)
}
func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: then, Else: els}, cond, then, els)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body}, cond, body)
}
func NewForIn(tok token.Token, name string, iterable, body *Node) *Node {
	return newNode(tok, ForIn, ForInNode{Var: name, Iterable: iterable, Body: body}, iterable, body)
}
func NewReturn(tok token.Token, value *Node) *Node {
	return newNode(tok, Return, ReturnNode{Value: value}, value)
}
func NewBreak(tok token.Token) *Node    { return newNode(tok, Break, BreakNode{}) }
func NewContinue(tok token.Token) *Node { return newNode(tok, Continue, ContinueNode{}) }
func NewPass(tok token.Token) *Node     { return newNode(tok, Pass, PassNode{}) }
func NewTupleAssign(tok token.Token, targets, values []*Node) *Node {
	node := newNode(tok, TupleAssign, TupleAssignNode{Targets: targets, Values: values})
	for _, t := range targets {
		t.Parent = node
	}
	for _, v := range values {
		v.Parent = node
	}
	return node
}
func NewGlobal(tok token.Token, names []string) *Node {
	return newNode(tok, Global, GlobalNode{Names: names})
}
func NewLocal(tok token.Token, names []string) *Node {
	return newNode(tok, Local, LocalNode{Names: names})
}
func NewStructDecl(tok token.Token, name string, fields []StructField) *Node {
	return newNode(tok, StructDecl, StructDeclNode{Name: name, Fields: fields})
}
func NewEnumDecl(tok token.Token, name string, values []EnumValue) *Node {
	return newNode(tok, EnumDecl, EnumDeclNode{Name: name, Values: values})
}
func NewProgram(tok token.Token, stmts []*Node) *Node {
	node := newNode(tok, Program, ProgramNode{Stmts: stmts})
	for _, s := range stmts {
		if s != nil {
			s.Parent = node
		}
	}
	return node
}

// Children returns the direct child nodes in evaluation order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	switch d := n.Data.(type) {
	case BinaryOpNode:
		return []*Node{d.Left, d.Right}
	case UnaryOpNode:
		return []*Node{d.Expr}
	case CallNode:
		return d.Args
	case IndexNode:
		return []*Node{d.Object, d.Key}
	case TupleNode:
		return d.Elements
	case ListLitNode:
		return d.Elements
	case DictLitNode:
		out := make([]*Node, 0, len(d.Pairs)*2)
		for _, p := range d.Pairs {
			out = append(out, p.Key, p.Value)
		}
		return out
	case VarDeclNode:
		return []*Node{d.Init}
	case FnDeclNode:
		if d.IsSingleExpression {
			return []*Node{d.Expr}
		}
		return d.Body
	case BlockNode:
		return d.Stmts
	case ExprStmtNode:
		return []*Node{d.Expr}
	case IfNode:
		return []*Node{d.Cond, d.Then, d.Else}
	case WhileNode:
		return []*Node{d.Cond, d.Body}
	case ForInNode:
		return []*Node{d.Iterable, d.Body}
	case ReturnNode:
		return []*Node{d.Value}
	case TupleAssignNode:
		return append(append([]*Node{}, d.Values...), d.Targets...)
	case ProgramNode:
		return d.Stmts
	}
	return nil
}

// Walk calls fn for node and, if fn returns true, for all its descendants
// in pre-order.
func Walk(node *Node, fn func(*Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, fn)
	}
}

// FoldConstants performs compile-time constant evaluation on the tree.
// Division and modulo by a constant zero are left unfolded so the fault
// surfaces at runtime like any other.
func FoldConstants(node *Node) *Node {
	if node == nil {
		return nil
	}

	switch d := node.Data.(type) {
	case BinaryOpNode:
		d.Left = FoldConstants(d.Left)
		d.Right = FoldConstants(d.Right)
		node.Data = d
	case UnaryOpNode:
		d.Expr = FoldConstants(d.Expr)
		node.Data = d
	case CallNode:
		for i := range d.Args {
			d.Args[i] = FoldConstants(d.Args[i])
		}
		node.Data = d
	case IndexNode:
		d.Object = FoldConstants(d.Object)
		d.Key = FoldConstants(d.Key)
		node.Data = d
	case TupleNode:
		for i := range d.Elements {
			d.Elements[i] = FoldConstants(d.Elements[i])
		}
		node.Data = d
	case ListLitNode:
		for i := range d.Elements {
			d.Elements[i] = FoldConstants(d.Elements[i])
		}
		node.Data = d
	case DictLitNode:
		for i := range d.Pairs {
			d.Pairs[i].Key = FoldConstants(d.Pairs[i].Key)
			d.Pairs[i].Value = FoldConstants(d.Pairs[i].Value)
		}
		node.Data = d
	}

	switch node.Type {
	case BinaryOp:
		d := node.Data.(BinaryOpNode)
		if d.Left.Type == IntLit && d.Right.Type == IntLit {
			l := d.Left.Data.(IntLitNode).Value
			r := d.Right.Data.(IntLitNode).Value
			var res int64
			folded := true
			switch d.Op {
			case token.Plus:
				res = l + r
			case token.Minus:
				res = l - r
			case token.Star:
				res = l * r
			case token.Slash, token.FloorDiv:
				if r == 0 {
					folded = false
				} else {
					res = l / r
				}
			case token.Percent:
				if r == 0 {
					folded = false
				} else {
					res = l % r
				}
			case token.Power:
				res = foldPower(l, r)
			case token.EqEq:
				if l == r {
					res = 1
				}
			case token.Neq:
				if l != r {
					res = 1
				}
			case token.Lt:
				if l < r {
					res = 1
				}
			case token.Lte:
				if l <= r {
					res = 1
				}
			case token.Gt:
				if l > r {
					res = 1
				}
			case token.Gte:
				if l >= r {
					res = 1
				}
			default:
				folded = false
			}
			if folded {
				return NewIntLit(node.Tok, res)
			}
		}
	case UnaryOp:
		d := node.Data.(UnaryOpNode)
		if d.Expr.Type == IntLit {
			val := d.Expr.Data.(IntLitNode).Value
			switch d.Op {
			case token.Minus:
				return NewIntLit(node.Tok, -val)
			case token.Plus:
				return NewIntLit(node.Tok, val)
			case token.Not:
				var res int64
				if val == 0 {
					res = 1
				}
				return NewIntLit(node.Tok, res)
			}
		}
	}

	return node
}

// foldPower mirrors the generated power loop: result starts at 1 and is
// multiplied base times for each unit of a non-negative exponent.
func foldPower(base, exp int64) int64 {
	var res int64 = 1
	for ; exp > 0; exp-- {
		res *= base
	}
	return res
}
