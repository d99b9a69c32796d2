package ast

import (
	"testing"

	"github.com/orion-lang/orion/pkg/token"
)

func intLit(v int64) *Node { return NewIntLit(token.Token{}, v) }

func bin(op token.Type, l, r *Node) *Node {
	return NewBinaryOp(token.Token{}, op, l, r)
}

func TestFoldConstants(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want int64
	}{
		{"add", bin(token.Plus, intLit(2), intLit(3)), 5},
		{"nested", bin(token.Plus, intLit(2), bin(token.Star, intLit(3), intLit(4))), 14},
		{"sub", bin(token.Minus, intLit(2), intLit(7)), -5},
		{"div", bin(token.Slash, intLit(9), intLit(2)), 4},
		{"floordiv", bin(token.FloorDiv, intLit(9), intLit(2)), 4},
		{"mod", bin(token.Percent, intLit(9), intLit(2)), 1},
		{"power", bin(token.Power, intLit(2), intLit(10)), 1024},
		{"power zero exp", bin(token.Power, intLit(7), intLit(0)), 1},
		{"power tower", bin(token.Power, intLit(2), bin(token.Power, intLit(3), intLit(2))), 512},
		{"lt", bin(token.Lt, intLit(1), intLit(2)), 1},
		{"gte", bin(token.Gte, intLit(1), intLit(2)), 0},
		{"neg", NewUnaryOp(token.Token{}, token.Minus, intLit(5)), -5},
		{"not zero", NewUnaryOp(token.Token{}, token.Not, intLit(0)), 1},
		{"not nonzero", NewUnaryOp(token.Token{}, token.Not, intLit(3)), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FoldConstants(tt.node)
			if got.Type != IntLit {
				t.Fatalf("did not fold to a literal: %v", got.Type)
			}
			if v := got.Data.(IntLitNode).Value; v != tt.want {
				t.Errorf("folded to %d, want %d", v, tt.want)
			}
		})
	}
}

func TestFoldLeavesDivisionByZero(t *testing.T) {
	node := FoldConstants(bin(token.Slash, intLit(1), intLit(0)))
	if node.Type != BinaryOp {
		t.Error("division by zero must stay unfolded for the runtime fault")
	}
	node = FoldConstants(bin(token.Percent, intLit(1), intLit(0)))
	if node.Type != BinaryOp {
		t.Error("modulo by zero must stay unfolded")
	}
}

func TestFoldLeavesNonConstant(t *testing.T) {
	node := FoldConstants(bin(token.Plus, NewIdent(token.Token{}, "x"), intLit(1)))
	if node.Type != BinaryOp {
		t.Error("non-constant operand folded away")
	}
}

func TestWalkVisitsInPreOrder(t *testing.T) {
	prog := NewProgram(token.Token{}, []*Node{
		NewExprStmt(token.Token{}, bin(token.Plus, intLit(1), intLit(2))),
		NewWhile(token.Token{}, intLit(1), NewBlock(token.Token{}, []*Node{
			NewBreak(token.Token{}),
		})),
	})
	var order []NodeType
	Walk(prog, func(n *Node) bool {
		order = append(order, n.Type)
		return true
	})
	want := []NodeType{Program, ExprStmt, BinaryOp, IntLit, IntLit, While, IntLit, Block, Break}
	if len(order) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visit %d = %v, want %v", i, order[i], want[i])
		}
	}
}

func TestWalkPruning(t *testing.T) {
	prog := NewProgram(token.Token{}, []*Node{
		NewExprStmt(token.Token{}, bin(token.Plus, intLit(1), intLit(2))),
	})
	var count int
	Walk(prog, func(n *Node) bool {
		count++
		return n.Type != ExprStmt
	})
	if count != 2 {
		t.Errorf("pruned walk visited %d nodes, want 2", count)
	}
}

func TestParentLinks(t *testing.T) {
	left, right := intLit(1), intLit(2)
	parent := bin(token.Plus, left, right)
	if left.Parent != parent || right.Parent != parent {
		t.Error("constructor did not set parent links")
	}
}
