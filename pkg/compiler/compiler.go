// Package compiler wires the front end to the back end: source text in,
// assembly text out.
package compiler

import (
	"github.com/orion-lang/orion/pkg/ast"
	"github.com/orion-lang/orion/pkg/codegen"
	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/lexer"
	"github.com/orion-lang/orion/pkg/parser"
	"github.com/orion-lang/orion/pkg/util"
)

// Compile lexes, parses and lowers one source file. The returned
// diagnostics are all the problems found; the first one fails the build.
// The assembly text is only meaningful when the diagnostic list is empty.
func Compile(source []byte, filename string, cfg *config.Config) (string, []*util.Diagnostic) {
	runes := []rune(string(source))
	util.SetSourceFiles([]util.SourceFileRecord{{Name: filename, Content: runes}})

	lx := lexer.NewLexer(runes, 0, cfg)
	toks, lexDiag := lx.Tokenize()
	if lexDiag != nil {
		return "", []*util.Diagnostic{lexDiag}
	}

	p := parser.NewParser(toks, cfg)
	program, parseDiags := p.Parse()
	if len(parseDiags) > 0 {
		return "", parseDiags
	}

	if cfg.IsFeatureEnabled(config.FeatFold) {
		foldTree(program)
	}

	ctx := codegen.NewContext(cfg)
	asm, genDiags := ctx.Generate(program)
	if len(genDiags) > 0 {
		return "", genDiags
	}
	return asm, nil
}

// foldTree runs constant folding over every expression position in the
// statement tree.
func foldTree(node *ast.Node) {
	if node == nil {
		return
	}
	switch d := node.Data.(type) {
	case ast.ProgramNode:
		for _, s := range d.Stmts {
			foldTree(s)
		}
	case ast.BlockNode:
		for _, s := range d.Stmts {
			foldTree(s)
		}
	case ast.FnDeclNode:
		if d.IsSingleExpression {
			d.Expr = ast.FoldConstants(d.Expr)
			node.Data = d
			return
		}
		for _, s := range d.Body {
			foldTree(s)
		}
	case ast.VarDeclNode:
		d.Init = ast.FoldConstants(d.Init)
		node.Data = d
	case ast.ExprStmtNode:
		d.Expr = ast.FoldConstants(d.Expr)
		node.Data = d
	case ast.IfNode:
		d.Cond = ast.FoldConstants(d.Cond)
		node.Data = d
		foldTree(d.Then)
		foldTree(d.Else)
	case ast.WhileNode:
		d.Cond = ast.FoldConstants(d.Cond)
		node.Data = d
		foldTree(d.Body)
	case ast.ForInNode:
		d.Iterable = ast.FoldConstants(d.Iterable)
		node.Data = d
		foldTree(d.Body)
	case ast.ReturnNode:
		d.Value = ast.FoldConstants(d.Value)
		node.Data = d
	case ast.TupleAssignNode:
		for i, v := range d.Values {
			d.Values[i] = ast.FoldConstants(v)
		}
		node.Data = d
	}
}
