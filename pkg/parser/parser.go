// Package parser turns a token sequence into the Orion AST. It is a
// hand-written recursive-descent parser with single-token lookahead and
// position save/restore for the ambiguous declaration forms.
package parser

import (
	"strconv"

	"github.com/orion-lang/orion/pkg/ast"
	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/token"
	"github.com/orion-lang/orion/pkg/types"
	"github.com/orion-lang/orion/pkg/util"
)

// Parser holds the state for the parsing process.
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
	diags    []*util.Diagnostic
}

// NewParser creates and initializes a new Parser from a token stream.
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	p := &Parser{tokens: tokens, cfg: cfg}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// bailout carries a parse error up to the nearest recovery point.
type bailout struct{ diag *util.Diagnostic }

func (p *Parser) errorAt(tok token.Token, format string, args ...interface{}) {
	panic(bailout{util.Errorf(util.DiagParse, tok, format, args...)})
}

// Parse consumes the whole token stream and returns the Program node along
// with every diagnostic collected. On a parse error the parser synchronizes
// to the next statement boundary and keeps going; the first diagnostic is
// the one that fails the build.
func (p *Parser) Parse() (*ast.Node, []*util.Diagnostic) {
	tok := p.current
	var stmts []*ast.Node
	for !p.isAtEnd() {
		if p.match(token.Newline) || p.match(token.Semi) {
			continue
		}
		if stmt := p.parseStatementRecover(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return ast.NewProgram(tok, stmts), p.diags
}

// parseStatementRecover parses one statement, catching parse errors and
// resynchronizing so later statements still get checked.
func (p *Parser) parseStatementRecover() (stmt *ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			p.diags = append(p.diags, b.diag)
			p.synchronize()
			stmt = nil
		}
	}()
	return p.parseStatement()
}

// Parser helpers

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) matchAny(tokTypes ...token.Type) bool {
	for _, tt := range tokTypes {
		if p.match(tt) {
			return true
		}
	}
	return false
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.errorAt(p.current, "%s (got %s)", message, p.current.Type)
	return token.Token{}
}

func (p *Parser) isAtEnd() bool { return p.check(token.EOF) }

// terminator consumes an optional statement terminator.
func (p *Parser) terminator() {
	if p.check(token.Semi) {
		p.advance()
		return
	}
	p.match(token.Newline)
}

// isStatementTerminator reports whether the current token ends the
// expression being parsed. Newlines are significant, so every binary
// operator loop checks this before matching its operator.
func (p *Parser) isStatementTerminator() bool {
	switch p.current.Type {
	case token.Newline, token.Semi, token.RBrace, token.EOF,
		token.If, token.Elif, token.Else, token.While, token.For,
		token.Break, token.Continue, token.Pass, token.Return:
		return true
	}
	return false
}

// matchSkippingNewlines matches tokType even when newlines precede it,
// restoring the position when it is absent. Used for 'elif'/'else' on the
// line after a closing brace.
func (p *Parser) matchSkippingNewlines(tokType token.Type) bool {
	saved := p.pos
	for p.check(token.Newline) {
		p.advance()
	}
	if p.match(tokType) {
		return true
	}
	p.restore(saved)
	return false
}

func (p *Parser) restore(pos int) {
	p.pos = pos
	p.current = p.tokens[pos]
	if pos > 0 {
		p.previous = p.tokens[pos-1]
	} else {
		p.previous = token.Token{}
	}
}

// Statement parsing

func (p *Parser) parseStatement() *ast.Node {
	tok := p.current

	// 'fn' is a context-sensitive identifier, not a reserved word.
	if p.check(token.Ident) && p.current.Value == "fn" {
		p.advance()
		return p.parseFnDecl(tok)
	}

	if p.check(token.LParen) {
		return p.parseTupleAssignOrExpr(tok)
	}

	switch {
	case p.match(token.Global):
		return ast.NewGlobal(tok, p.parseNameList("global"))
	case p.match(token.Local):
		return ast.NewLocal(tok, p.parseNameList("local"))
	case p.match(token.Struct):
		return p.parseStructDecl(tok)
	case p.match(token.Enum):
		return p.parseEnumDecl(tok)
	case p.match(token.If):
		return p.parseIfStatement(tok)
	case p.match(token.While):
		cond := p.parseExpression()
		body := p.parseStatement()
		return ast.NewWhile(tok, cond, body)
	case p.match(token.For):
		return p.parseForIn(tok)
	case p.match(token.Return):
		var value *ast.Node
		if !p.isStatementTerminator() {
			value = p.parseExpression()
		}
		p.terminator()
		return ast.NewReturn(tok, value)
	case p.match(token.Break):
		p.terminator()
		return ast.NewBreak(tok)
	case p.match(token.Continue):
		p.terminator()
		return ast.NewContinue(tok)
	case p.match(token.Pass):
		p.terminator()
		return ast.NewPass(tok)
	case p.check(token.LBrace):
		return p.parseBlockStmt()
	}

	return p.parseVarDeclOrExpr()
}

func (p *Parser) parseNameList(keyword string) []string {
	if !p.check(token.Ident) {
		p.errorAt(p.current, "Expected variable name after '%s'", keyword)
	}
	var names []string
	for {
		p.expect(token.Ident, "Expected identifier")
		names = append(names, p.previous.Value)
		if !p.match(token.Comma) {
			break
		}
	}
	p.terminator()
	return names
}

func (p *Parser) parseBlockStmt() *ast.Node {
	tok := p.current
	p.expect(token.LBrace, "Expected '{' to start a block")
	var stmts []*ast.Node
	terminated := false
	for !p.check(token.RBrace) && !p.isAtEnd() {
		if p.match(token.Newline) || p.match(token.Semi) {
			continue
		}
		if terminated {
			util.Warn(p.cfg, config.WarnUnreachableCode, p.current, "Unreachable code")
			terminated = false
		}
		stmt := p.parseStatement()
		stmts = append(stmts, stmt)
		switch stmt.Type {
		case ast.Return, ast.Break, ast.Continue:
			terminated = true
		}
	}
	p.expect(token.RBrace, "Expected '}' after block")
	return ast.NewBlock(tok, stmts)
}

// parseIfStatement collects the whole if/elif chain iteratively and builds
// the nested tree back to front, so pathological chains cannot exhaust the
// parser stack.
func (p *Parser) parseIfStatement(ifTok token.Token) *ast.Node {
	type branch struct {
		tok  token.Token
		cond *ast.Node
		body *ast.Node
	}

	branches := []branch{{ifTok, p.parseExpression(), p.parseStatement()}}
	for p.matchSkippingNewlines(token.Elif) {
		tok := p.previous
		branches = append(branches, branch{tok, p.parseExpression(), p.parseStatement()})
	}

	var node *ast.Node
	if p.matchSkippingNewlines(token.Else) {
		node = p.parseStatement()
	}

	for i := len(branches) - 1; i >= 0; i-- {
		b := branches[i]
		node = ast.NewIf(b.tok, b.cond, b.body, node)
	}
	return node
}

func (p *Parser) parseForIn(forTok token.Token) *ast.Node {
	name := p.expect(token.Ident, "Expected variable name after 'for'")
	if !p.match(token.In) {
		p.errorAt(p.current, "Expected 'in' after loop variable (C-style for loops are not supported)")
	}
	iterable := p.parseExpression()
	body := p.parseStatement()
	return ast.NewForIn(forTok, name.Value, iterable, body)
}

func (p *Parser) parseStructDecl(tok token.Token) *ast.Node {
	if !p.cfg.IsFeatureEnabled(config.FeatStructs) {
		p.errorAt(tok, "'struct' declarations are not enabled")
	}
	name := p.expect(token.Ident, "Expected struct name")
	p.expect(token.LBrace, "Expected '{' after struct name")

	var fields []ast.StructField
	for !p.check(token.RBrace) && !p.isAtEnd() {
		if p.match(token.Newline) || p.match(token.Semi) {
			continue
		}
		fieldName := p.expect(token.Ident, "Expected field name")
		fieldType := p.parseType()
		fields = append(fields, ast.StructField{Name: fieldName.Value, Type: fieldType})
	}
	p.expect(token.RBrace, "Expected '}' after struct fields")
	return ast.NewStructDecl(tok, name.Value, fields)
}

func (p *Parser) parseEnumDecl(tok token.Token) *ast.Node {
	if !p.cfg.IsFeatureEnabled(config.FeatStructs) {
		p.errorAt(tok, "'enum' declarations are not enabled")
	}
	name := p.expect(token.Ident, "Expected enum name")
	p.expect(token.LBrace, "Expected '{' after enum name")

	var values []ast.EnumValue
	var next int64
	for !p.check(token.RBrace) && !p.isAtEnd() {
		if p.match(token.Newline) {
			continue
		}
		valueName := p.expect(token.Ident, "Expected enum value name")
		if p.match(token.Assign) {
			valueTok := p.expect(token.Int, "Expected integer value")
			v, err := strconv.ParseInt(valueTok.Value, 10, 64)
			if err != nil {
				p.errorAt(valueTok, "Invalid enum value: %s", valueTok.Value)
			}
			next = v
		}
		values = append(values, ast.EnumValue{Name: valueName.Value, Value: next})
		next++
		if !p.check(token.RBrace) {
			p.matchAny(token.Comma, token.Newline)
		}
	}
	p.expect(token.RBrace, "Expected '}' after enum values")
	return ast.NewEnumDecl(tok, name.Value, values)
}

func (p *Parser) parseFnDecl(fnTok token.Token) *ast.Node {
	name := p.expect(token.Ident, "Expected function name")
	p.expect(token.LParen, "Expected '(' after function name")

	var params []ast.Param
	if !p.check(token.RParen) {
		for {
			paramName := p.expect(token.Ident, "Expected parameter name")
			paramType := types.TypeUnknown
			explicit := true
			switch {
			case p.match(token.Colon):
				paramType = p.parseType()
			case p.isTypeToken(p.current):
				paramType = p.parseType()
			default:
				explicit = false
			}
			params = append(params, ast.Param{Name: paramName.Value, Type: paramType, Explicit: explicit})
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameters")

	returnType := types.TypeVoid
	if p.match(token.Arrow) {
		returnType = p.parseType()
	}

	data := ast.FnDeclNode{Name: name.Value, Params: params, ReturnType: returnType}
	if p.match(token.FatArrow) {
		// An 'if' after '=>' is a conditional body: each branch leaves its
		// value behind, like any other single-expression form.
		if p.check(token.If) {
			data.Body = []*ast.Node{p.parseStatement()}
		} else {
			data.IsSingleExpression = true
			data.Expr = p.parseExpression()
			p.terminator()
		}
	} else {
		if !p.check(token.LBrace) {
			p.errorAt(p.current, "Expected '{' or '=>' for function body")
		}
		block := p.parseBlockStmt()
		data.Body = block.Data.(ast.BlockNode).Stmts
	}
	return ast.NewFnDecl(fnTok, data)
}

// parseVarDeclOrExpr tries the declaration forms first with position
// save/restore, rewinding to an expression statement when none applies.
func (p *Parser) parseVarDeclOrExpr() *ast.Node {
	saved := p.pos
	decl := p.tryVarDecl()
	if decl != nil {
		p.terminator()
		return decl
	}
	p.restore(saved)

	tok := p.current
	expr := p.parseExpression()

	// Subscript store: d[k] = v is a single-target assignment.
	if expr.Type == ast.Index && p.match(token.Assign) {
		value := p.parseExpression()
		p.terminator()
		return ast.NewTupleAssign(tok, []*ast.Node{expr}, []*ast.Node{value})
	}

	p.terminator()
	return ast.NewExprStmt(tok, expr)
}

// tryVarDecl attempts the four declaration forms:
//
//	a = expr          inferred
//	a = int expr      type after '='
//	a int = expr      type after name
//	int a = expr      type before name
//	a op= expr        desugared to a = a op expr
//
// It returns nil (with the position left wherever it stopped; the caller
// restores) when the lookahead is not a declaration.
func (p *Parser) tryVarDecl() (decl *ast.Node) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			decl = nil
		}
	}()

	first := p.current
	p.advance()

	if first.Type == token.Ident {
		switch {
		case p.match(token.Assign):
			if p.isTypeKeyword(p.current.Type) && !p.isConversionCall() {
				varType := p.parseType()
				init := p.parseExpression()
				return ast.NewVarDecl(first, first.Value, varType, init, true)
			}
			init := p.parseExpression()
			return ast.NewVarDecl(first, first.Value, types.TypeUnknown, init, false)

		case token.IsCompoundAssign(p.current.Type):
			op := compoundBinaryOp(p.current.Type)
			opTok := p.current
			p.advance()
			right := p.parseExpression()
			lhs := ast.NewIdent(first, first.Value)
			binary := ast.NewBinaryOp(opTok, op, lhs, right)
			return ast.NewVarDecl(first, first.Value, types.TypeUnknown, binary, false)

		case p.isTypeKeyword(p.current.Type):
			varType := p.parseType()
			p.expect(token.Assign, "Expected '=' after type in variable declaration")
			init := p.parseExpression()
			return ast.NewVarDecl(first, first.Value, varType, init, true)
		}
	} else if p.isTypeKeyword(first.Type) {
		varType, _ := types.FromToken(first.Type)
		name := p.expect(token.Ident, "Expected variable name after type")
		p.expect(token.Assign, "Expected '=' in variable declaration")
		init := p.parseExpression()
		return ast.NewVarDecl(name, name.Value, varType, init, true)
	}

	return nil
}

func compoundBinaryOp(t token.Type) token.Type {
	switch t {
	case token.PlusAssign:
		return token.Plus
	case token.MinusAssign:
		return token.Minus
	case token.StarAssign:
		return token.Star
	case token.SlashAssign:
		return token.Slash
	case token.PercentAssign:
		return token.Percent
	}
	return t
}

// parseTupleAssignOrExpr handles the ambiguous '(' statement opener. The
// parser commits to tuple assignment only after seeing '=' behind the
// closing parenthesis.
func (p *Parser) parseTupleAssignOrExpr(tok token.Token) *ast.Node {
	left := p.parseExpression()

	if token.IsAssignOp(p.current.Type) {
		if p.current.Type != token.Assign {
			p.errorAt(p.current, "Compound assignment is only supported for simple variables")
		}
		p.advance()

		var targets []*ast.Node
		if left.Type == ast.Tuple {
			targets = left.Data.(ast.TupleNode).Elements
		} else {
			targets = []*ast.Node{left}
		}
		for _, t := range targets {
			if t.Type != ast.Ident && t.Type != ast.Index {
				p.errorAt(t.Tok, "Invalid target in tuple assignment")
			}
		}

		right := p.parseExpression()
		var values []*ast.Node
		if right.Type == ast.Tuple {
			values = right.Data.(ast.TupleNode).Elements
		} else {
			values = []*ast.Node{right}
		}

		if len(values) != len(targets) && len(values) != 1 {
			p.errorAt(tok, "Tuple assignment arity mismatch: %d targets, %d values",
				len(targets), len(values))
		}

		p.terminator()
		return ast.NewTupleAssign(tok, targets, values)
	}

	p.terminator()
	return ast.NewExprStmt(tok, left)
}

// Expression parsing, precedence low to high.

func (p *Parser) parseExpression() *ast.Node {
	return p.parseLogicalOr()
}

func (p *Parser) parseLogicalOr() *ast.Node {
	expr := p.parseLogicalAnd()
	for !p.isStatementTerminator() && p.check(token.Or) {
		opTok := p.current
		p.advance()
		right := p.parseLogicalAnd()
		expr = ast.NewBinaryOp(opTok, token.Or, expr, right)
	}
	return expr
}

func (p *Parser) parseLogicalAnd() *ast.Node {
	expr := p.parseEquality()
	for !p.isStatementTerminator() && p.check(token.And) {
		opTok := p.current
		p.advance()
		right := p.parseEquality()
		expr = ast.NewBinaryOp(opTok, token.And, expr, right)
	}
	return expr
}

func (p *Parser) parseEquality() *ast.Node {
	expr := p.parseComparison()
	for !p.isStatementTerminator() && (p.check(token.EqEq) || p.check(token.Neq)) {
		opTok := p.current
		p.advance()
		right := p.parseComparison()
		expr = ast.NewBinaryOp(opTok, opTok.Type, expr, right)
	}
	return expr
}

func (p *Parser) parseComparison() *ast.Node {
	expr := p.parseAdditive()
	for !p.isStatementTerminator() &&
		(p.check(token.Lt) || p.check(token.Lte) || p.check(token.Gt) || p.check(token.Gte)) {
		opTok := p.current
		p.advance()
		right := p.parseAdditive()
		expr = ast.NewBinaryOp(opTok, opTok.Type, expr, right)
	}
	return expr
}

func (p *Parser) parseAdditive() *ast.Node {
	expr := p.parseMultiplicative()
	for !p.isStatementTerminator() && (p.check(token.Plus) || p.check(token.Minus)) {
		opTok := p.current
		p.advance()
		right := p.parseMultiplicative()
		expr = ast.NewBinaryOp(opTok, opTok.Type, expr, right)
	}
	return expr
}

func (p *Parser) parseMultiplicative() *ast.Node {
	expr := p.parsePower()
	for !p.isStatementTerminator() &&
		(p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) || p.check(token.FloorDiv)) {
		opTok := p.current
		p.advance()
		right := p.parsePower()
		expr = ast.NewBinaryOp(opTok, opTok.Type, expr, right)
	}
	return expr
}

// parsePower is right-associative: a ** b ** c parses as a ** (b ** c).
func (p *Parser) parsePower() *ast.Node {
	expr := p.parseUnary()
	if !p.isStatementTerminator() && p.check(token.Power) {
		opTok := p.current
		p.advance()
		right := p.parsePower()
		expr = ast.NewBinaryOp(opTok, token.Power, expr, right)
	}
	return expr
}

func (p *Parser) parseUnary() *ast.Node {
	tok := p.current
	if p.matchAny(token.Not, token.Minus, token.Plus) {
		op := p.previous.Type
		operand := p.parseUnary()
		return ast.NewUnaryOp(tok, op, operand)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Node {
	expr := p.parsePrimary()
	for {
		tok := p.current
		if p.match(token.LParen) {
			if expr.Type != ast.Ident {
				p.errorAt(tok, "Invalid function call target")
			}
			name := expr.Data.(ast.IdentNode).Name
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					args = append(args, p.parseExpression())
					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.expect(token.RParen, "Expected ')' after arguments")
			expr = ast.NewCall(tok, name, args)
		} else if p.match(token.LBracket) {
			key := p.parseExpression()
			p.expect(token.RBracket, "Expected ']' after index")
			expr = ast.NewIndex(tok, expr, key)
		} else {
			break
		}
	}
	return expr
}

// isConversionCall reports whether the current token starts one of the
// builtin conversions spelled with a type keyword: int(...) or bool(...).
func (p *Parser) isConversionCall() bool {
	return (p.check(token.IntType) || p.check(token.BoolType)) && p.peek().Type == token.LParen
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.current

	switch {
	case p.match(token.True):
		return ast.NewBoolLit(tok, true)
	case p.match(token.False):
		return ast.NewBoolLit(tok, false)
	case p.match(token.Int):
		val, err := strconv.ParseInt(p.previous.Value, 10, 64)
		if err != nil {
			p.errorAt(tok, "Invalid integer literal: %s", p.previous.Value)
		}
		return ast.NewIntLit(tok, val)
	case p.match(token.Float):
		val, err := strconv.ParseFloat(p.previous.Value, 64)
		if err != nil {
			p.errorAt(tok, "Invalid float literal: %s", p.previous.Value)
		}
		return ast.NewFloatLit(tok, val)
	case p.match(token.String):
		return ast.NewStringLit(tok, p.previous.Value)
	case p.match(token.Ident):
		return ast.NewIdent(tok, p.previous.Value)
	}

	if p.isConversionCall() {
		p.advance()
		return ast.NewIdent(tok, tok.Lexeme())
	}

	if p.match(token.LParen) {
		first := p.parseExpression()
		if p.match(token.Comma) {
			elements := []*ast.Node{first}
			for {
				elements = append(elements, p.parseExpression())
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RParen, "Expected ')' after tuple")
			return ast.NewTuple(tok, elements)
		}
		p.expect(token.RParen, "Expected ')' after expression")
		return first
	}

	if p.match(token.LBracket) {
		var elements []*ast.Node
		if !p.match(token.RBracket) {
			for {
				elements = append(elements, p.parseExpression())
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RBracket, "Expected ']' after list elements")
		}
		return ast.NewListLit(tok, elements)
	}

	if p.match(token.LBrace) {
		var pairs []ast.DictPair
		if !p.match(token.RBrace) {
			for {
				key := p.parseExpression()
				p.expect(token.Colon, "Expected ':' after dictionary key")
				value := p.parseExpression()
				pairs = append(pairs, ast.DictPair{Key: key, Value: value})
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RBrace, "Expected '}' after dictionary elements")
		}
		return ast.NewDictLit(tok, pairs)
	}

	p.errorAt(tok, "Expected an expression")
	return nil
}

// Types

func (p *Parser) parseType() types.Type {
	if t, ok := types.FromToken(p.current.Type); ok {
		p.advance()
		return t
	}
	if p.check(token.Ident) {
		name := p.current.Value
		p.advance()
		return types.Named(name)
	}
	p.errorAt(p.current, "Expected type")
	return types.TypeUnknown
}

func (p *Parser) isTypeKeyword(t token.Type) bool {
	return token.IsTypeKeyword(t)
}

// isTypeToken reports whether tok can begin a parameter type annotation:
// a type keyword or a struct/enum name.
func (p *Parser) isTypeToken(tok token.Token) bool {
	return token.IsTypeKeyword(tok.Type) || tok.Type == token.Ident
}

// synchronize discards tokens until the next statement boundary so the
// parser can report further independent errors.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous.Type == token.Semi || p.previous.Type == token.Newline ||
			p.previous.Type == token.RBrace {
			return
		}
		switch p.current.Type {
		case token.Struct, token.Enum, token.If, token.While, token.For, token.Return:
			return
		}
		p.advance()
	}
}
