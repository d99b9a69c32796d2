// Package codegen walks the AST once and lowers it to GAS AT&T assembly
// text for the selected target ABI. High-level constructs (lists, dicts,
// ranges, indexing, power, tuple assignment) lower to calls into the
// runtime object whose surface pkg/rt describes.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orion-lang/orion/pkg/ast"
	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/rt"
	"github.com/orion-lang/orion/pkg/target"
	"github.com/orion-lang/orion/pkg/token"
	"github.com/orion-lang/orion/pkg/types"
	"github.com/orion-lang/orion/pkg/util"
)

// mainSymbol is the label the user's 'main' is emitted under so it never
// collides with the C entry point on targets whose entry is called main.
const mainSymbol = "orion_main"

type variable struct {
	StackOffset int
	IsParameter bool
	Kind        rt.Kind
}

type Context struct {
	cfg  *config.Config
	spec target.Spec

	text strings.Builder

	labelCount  int
	currentFunc string
	variables   map[string]*variable
	stackOffset int

	strings     map[string]string
	stringOrder []string

	globals     map[string]string
	globalOrder []string

	fnReturn map[string]rt.Kind
	fnDecls  map[string]*ast.Node
	enums    map[string]int64
	structs  map[string][]ast.StructField

	externs map[string]bool

	breakLabel    string
	continueLabel string

	diags []*util.Diagnostic
}

func NewContext(cfg *config.Config) *Context {
	return &Context{
		cfg:       cfg,
		spec:      cfg.Target,
		variables: make(map[string]*variable),
		strings:   make(map[string]string),
		globals:   make(map[string]string),
		fnReturn:  make(map[string]rt.Kind),
		fnDecls:   make(map[string]*ast.Node),
		enums:     make(map[string]int64),
		structs:   make(map[string][]ast.StructField),
		externs:   make(map[string]bool),
	}
}

// Generate lowers the program and returns the complete assembly text along
// with any diagnostics. The text section is generated first so the string
// pool is complete before the data section is rendered.
func (c *Context) Generate(program *ast.Node) (string, []*util.Diagnostic) {
	prog := program.Data.(ast.ProgramNode)

	c.collectDeclarations(prog.Stmts)
	c.genEntry(prog.Stmts)

	for _, stmt := range prog.Stmts {
		if stmt.Type == ast.FnDecl {
			c.genFunction(stmt)
		}
	}

	c.genSupportFunctions()

	var out strings.Builder
	c.renderDataSection(&out)
	out.WriteString("\n")
	out.WriteString(c.spec.TextSection + "\n")
	c.renderExterns(&out)
	out.WriteString(".global " + c.spec.EntrySymbol() + "\n\n")
	out.WriteString(c.text.String())
	return out.String(), c.diags
}

// collectDeclarations runs the prepass: function return-kind table, enum
// constants, struct layouts, and global slots.
func (c *Context) collectDeclarations(stmts []*ast.Node) {
	for _, stmt := range stmts {
		switch stmt.Type {
		case ast.FnDecl:
			d := stmt.Data.(ast.FnDeclNode)
			if _, exists := c.fnDecls[d.Name]; exists {
				c.errorAt(stmt.Tok, "Function '%s' is declared twice", d.Name)
			}
			c.fnDecls[d.Name] = stmt
		case ast.StructDecl:
			d := stmt.Data.(ast.StructDeclNode)
			c.structs[d.Name] = d.Fields
		case ast.EnumDecl:
			d := stmt.Data.(ast.EnumDeclNode)
			for _, v := range d.Values {
				c.enums[v.Name] = v.Value
			}
		}
	}

	// Resolve return kinds after every declaration is known so forward
	// calls see the right kind.
	for name, stmt := range c.fnDecls {
		c.fnReturn[name] = c.inferFnReturnKind(stmt)
	}

	// Global slots come from 'global' statements anywhere in the tree.
	ast.Walk(ast.NewProgram(token.Token{}, stmts), func(n *ast.Node) bool {
		if n.Type == ast.Global {
			for _, name := range n.Data.(ast.GlobalNode).Names {
				c.ensureGlobal(name)
			}
		}
		return true
	})
}

func (c *Context) ensureGlobal(name string) string {
	if label, ok := c.globals[name]; ok {
		return label
	}
	label := "g_" + name
	c.globals[name] = label
	c.globalOrder = append(c.globalOrder, name)
	return label
}

func (c *Context) inferFnReturnKind(stmt *ast.Node) rt.Kind {
	d := stmt.Data.(ast.FnDeclNode)
	if d.ReturnType.Kind != types.Void && d.ReturnType.Kind != types.Unknown {
		return kindOfType(d.ReturnType)
	}
	if d.IsSingleExpression {
		return c.staticKind(d.Expr)
	}
	kind := rt.KindInt
	found := false
	for _, s := range d.Body {
		ast.Walk(s, func(n *ast.Node) bool {
			if found || n.Type == ast.FnDecl {
				return false
			}
			if n.Type == ast.Return {
				if v := n.Data.(ast.ReturnNode).Value; v != nil {
					kind = c.staticKind(v)
					found = true
				}
				return false
			}
			return true
		})
		if found {
			break
		}
	}
	return kind
}

func kindOfType(t types.Type) rt.Kind {
	switch t.Kind {
	case types.Int32, types.Int64, types.Struct:
		return rt.KindInt
	case types.Float32, types.Float64:
		return rt.KindFloat
	case types.String:
		return rt.KindString
	case types.Bool:
		return rt.KindBool
	case types.Void:
		return rt.KindVoid
	}
	return rt.KindUnknown
}

// genEntry emits the program entry point: top-level statements run first,
// then main (when declared), then exit.
func (c *Context) genEntry(stmts []*ast.Node) {
	c.currentFunc = ""
	c.variables = make(map[string]*variable)
	c.stackOffset = 0

	var topLevel []*ast.Node
	for _, stmt := range stmts {
		switch stmt.Type {
		case ast.FnDecl:
			continue
		default:
			topLevel = append(topLevel, stmt)
		}
	}

	c.label(c.spec.EntrySymbol())
	c.genPrologue(countStackSlots(topLevel))

	for _, stmt := range topLevel {
		c.genStmt(stmt)
	}

	if _, hasMain := c.fnDecls["main"]; hasMain {
		c.emit("call " + mainSymbol)
	}
	arg0 := c.spec.IntArgRegs[0]
	c.emitf("xor %s, %s", arg0, arg0)
	c.emit("call orion_exit")
	c.raw("\n")
}

func (c *Context) genFunction(stmt *ast.Node) {
	d := stmt.Data.(ast.FnDeclNode)

	name := d.Name
	if name == "main" {
		name = mainSymbol
	}

	c.currentFunc = d.Name
	c.variables = make(map[string]*variable)
	c.stackOffset = 0

	body := d.Body
	if d.IsSingleExpression {
		body = []*ast.Node{ast.NewExprStmt(stmt.Tok, d.Expr)}
	}

	if len(d.Params) > len(c.spec.IntArgRegs) {
		c.errorAt(stmt.Tok, "Function '%s' has %d parameters; the %s ABI passes at most %d in registers",
			d.Name, len(d.Params), c.spec.Name, len(c.spec.IntArgRegs))
		return
	}

	c.label(name)
	c.genPrologue(len(d.Params) + countStackSlots(body))

	// Move parameter registers into stack slots.
	for i, param := range d.Params {
		v := c.declareVariable(param.Name, kindOfType(param.Type))
		v.IsParameter = true
		c.emitf("mov %s, -%d(%%rbp)", c.spec.IntArgRegs[i], v.StackOffset)
	}

	for _, s := range body {
		c.genStmt(s)
	}

	c.genEpilogue()
	c.raw("\n")
	c.currentFunc = ""
}

// genPrologue emits the frame setup: locals rounded up to the stack
// alignment, plus the shadow space the target demands.
func (c *Context) genPrologue(slots int) {
	c.emit("push %rbp")
	c.emit("mov %rsp, %rbp")
	reserve := slots * 8
	reserve = (reserve + c.spec.StackAlignment - 1) &^ (c.spec.StackAlignment - 1)
	reserve += c.spec.ShadowSpace
	if reserve > 0 {
		c.emitf("sub $%d, %%rsp", reserve)
	}
}

// genEpilogue releases live heap locals, then unwinds the frame. The last
// evaluated expression stays in %rax, which is what single-expression
// bodies return. main never returns: it calls the exit wrapper instead.
func (c *Context) genEpilogue() {
	if c.currentFunc == "main" {
		arg0 := c.spec.IntArgRegs[0]
		c.emitf("xor %s, %s", arg0, arg0)
		c.emit("call orion_exit")
		return
	}
	c.genScopeReleases()
	c.emit("leave")
	c.emit("ret")
}

// genScopeReleases emits release calls for every heap-kinded local,
// preserving the value in the return register.
func (c *Context) genScopeReleases() {
	var names []string
	for name, v := range c.variables {
		if !v.IsParameter && rt.ReleaseFunc(v.Kind) != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	sort.Slice(names, func(i, j int) bool {
		return c.variables[names[i]].StackOffset < c.variables[names[j]].StackOffset
	})
	c.emit("push %rax")
	for _, name := range names {
		v := c.variables[name]
		c.emitf("mov -%d(%%rbp), %s", v.StackOffset, c.spec.IntArgRegs[0])
		c.callRuntime(rt.ReleaseFunc(v.Kind))
	}
	c.emit("pop %rax")
}

// Statements

func (c *Context) genStmt(stmt *ast.Node) {
	if stmt == nil {
		return
	}
	switch d := stmt.Data.(type) {
	case ast.VarDeclNode:
		c.genVarDecl(stmt, d)
	case ast.ExprStmtNode:
		c.genExpr(d.Expr)
	case ast.BlockNode:
		for _, s := range d.Stmts {
			c.genStmt(s)
		}
	case ast.IfNode:
		c.genIf(d)
	case ast.WhileNode:
		c.genWhile(d)
	case ast.ForInNode:
		c.genForIn(stmt, d)
	case ast.ReturnNode:
		c.genReturn(d)
	case ast.BreakNode:
		if c.breakLabel == "" {
			c.errorAt(stmt.Tok, "'break' outside of a loop")
			return
		}
		c.emit("jmp " + c.breakLabel)
	case ast.ContinueNode:
		if c.continueLabel == "" {
			c.errorAt(stmt.Tok, "'continue' outside of a loop")
			return
		}
		c.emit("jmp " + c.continueLabel)
	case ast.PassNode:
		// no code
	case ast.TupleAssignNode:
		c.genTupleAssign(stmt, d)
	case ast.GlobalNode:
		// Slots were created in the prepass; nothing executes.
	case ast.LocalNode:
		for _, name := range d.Names {
			if v, ok := c.variables[name]; ok && v.IsParameter {
				util.Warn(c.cfg, config.WarnShadow, stmt.Tok,
					"'local %s' shadows a parameter of the enclosing function", name)
			} else if _, ok := c.globals[name]; ok {
				util.Warn(c.cfg, config.WarnShadow, stmt.Tok,
					"'local %s' shadows the global of the same name", name)
			}
			c.declareVariable(name, rt.KindUnknown)
		}
	case ast.StructDeclNode:
		c.emitf("# struct %s (%d fields)", d.Name, len(d.Fields))
	case ast.EnumDeclNode:
		c.emitf("# enum %s (%d values)", d.Name, len(d.Values))
	case ast.FnDeclNode:
		c.errorAt(stmt.Tok, "Nested function declarations are not supported")
	default:
		c.errorAt(stmt.Tok, "Cannot generate code for this statement")
	}
}

// declareVariable allocates a fresh 8-byte slot for name, or returns the
// existing binding when the name is already live in this function.
func (c *Context) declareVariable(name string, kind rt.Kind) *variable {
	if v, ok := c.variables[name]; ok {
		return v
	}
	c.stackOffset += 8
	v := &variable{StackOffset: c.stackOffset, Kind: kind}
	c.variables[name] = v
	return v
}

// allocTemp reserves an anonymous slot and returns its rbp offset.
func (c *Context) allocTemp() int {
	c.stackOffset += 8
	return c.stackOffset
}

func (c *Context) genVarDecl(stmt *ast.Node, d ast.VarDeclNode) {
	// A name declared 'global' stores to its data slot instead.
	if label, isGlobal := c.globals[d.Name]; isGlobal {
		if _, shadowed := c.variables[d.Name]; !shadowed {
			c.genExpr(d.Init)
			c.emitf("mov %%rax, %s(%%rip)", label)
			return
		}
	}

	existing, redeclared := c.variables[d.Name]

	kind := c.genExpr(d.Init)
	if d.ExplicitType {
		kind = kindOfType(d.VarType)
	}

	// Aliasing another handle: the new binding owns its own reference.
	if d.Init != nil && d.Init.Type == ast.Ident {
		if retain := rt.RetainFunc(kind); retain != "" {
			c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
			c.callRuntime(retain)
		}
	}

	if redeclared {
		// Overwriting a heap handle drops the old reference first.
		if release := rt.ReleaseFunc(existing.Kind); release != "" {
			c.emit("push %rax")
			c.emitf("mov -%d(%%rbp), %s", existing.StackOffset, c.spec.IntArgRegs[0])
			c.callRuntime(release)
			c.emit("pop %rax")
		}
		existing.Kind = kind
		c.emitf("mov %%rax, -%d(%%rbp)", existing.StackOffset)
		return
	}

	v := c.declareVariable(d.Name, kind)
	c.emitf("mov %%rax, -%d(%%rbp)", v.StackOffset)
}

func (c *Context) genIf(d ast.IfNode) {
	elseLabel := c.newLabel("else")
	endLabel := c.newLabel("end_if")

	c.genExpr(d.Cond)
	c.emit("test %rax, %rax")
	c.emit("jz " + elseLabel)

	c.genStmt(d.Then)
	c.emit("jmp " + endLabel)

	c.label(elseLabel)
	if d.Else != nil {
		c.genStmt(d.Else)
	}
	c.label(endLabel)
}

func (c *Context) genWhile(d ast.WhileNode) {
	loopLabel := c.newLabel("loop")
	endLabel := c.newLabel("end_loop")

	savedBreak, savedContinue := c.breakLabel, c.continueLabel
	c.breakLabel, c.continueLabel = endLabel, loopLabel

	c.label(loopLabel)
	c.genExpr(d.Cond)
	c.emit("test %rax, %rax")
	c.emit("jz " + endLabel)

	c.genStmt(d.Body)
	c.emit("jmp " + loopLabel)
	c.label(endLabel)

	c.breakLabel, c.continueLabel = savedBreak, savedContinue
}

// genForIn lowers range iteration directly and every other iterable by
// index up to its length.
func (c *Context) genForIn(stmt *ast.Node, d ast.ForInNode) {
	if v, ok := c.variables[d.Var]; ok && v.IsParameter {
		util.Warn(c.cfg, config.WarnShadow, stmt.Tok,
			"Loop variable '%s' shadows a parameter of the enclosing function", d.Var)
	} else if _, ok := c.globals[d.Var]; ok {
		util.Warn(c.cfg, config.WarnShadow, stmt.Tok,
			"Loop variable '%s' shadows the global of the same name", d.Var)
	}

	iterKind := c.genExpr(d.Iterable)

	lenFunc, getFunc := "list_len", "list_get"
	ownKind := iterKind
	switch iterKind {
	case rt.KindRange:
		lenFunc, getFunc = "range_len", "range_get"
	case rt.KindDict:
		// Iterating a dict walks its keys snapshot.
		c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
		c.callRuntime("dict_keys")
		ownKind = rt.KindList
	}

	iterSlot := c.allocTemp()
	idxSlot := c.allocTemp()
	lenSlot := c.allocTemp()
	loopVar := c.declareVariable(d.Var, rt.KindInt)

	c.emitf("mov %%rax, -%d(%%rbp)", iterSlot)
	c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
	c.callRuntime(lenFunc)
	c.emitf("mov %%rax, -%d(%%rbp)", lenSlot)
	c.emitf("movq $0, -%d(%%rbp)", idxSlot)

	loopLabel := c.newLabel("loop")
	continueLabel := c.newLabel("loop_next")
	endLabel := c.newLabel("end_loop")

	savedBreak, savedContinue := c.breakLabel, c.continueLabel
	c.breakLabel, c.continueLabel = endLabel, continueLabel

	c.label(loopLabel)
	c.emitf("mov -%d(%%rbp), %%rax", idxSlot)
	c.emitf("cmp -%d(%%rbp), %%rax", lenSlot)
	c.emit("jge " + endLabel)

	c.emitf("mov -%d(%%rbp), %s", iterSlot, c.spec.IntArgRegs[0])
	c.emitf("mov -%d(%%rbp), %s", idxSlot, c.spec.IntArgRegs[1])
	c.callRuntime(getFunc)
	c.emitf("mov %%rax, -%d(%%rbp)", loopVar.StackOffset)

	c.genStmt(d.Body)

	c.label(continueLabel)
	c.emitf("incq -%d(%%rbp)", idxSlot)
	c.emit("jmp " + loopLabel)
	c.label(endLabel)

	c.breakLabel, c.continueLabel = savedBreak, savedContinue

	// Drop the snapshot list created for dict iteration; other iterables
	// stay owned by whoever produced them.
	if iterKind == rt.KindDict && ownKind == rt.KindList {
		c.emitf("mov -%d(%%rbp), %s", iterSlot, c.spec.IntArgRegs[0])
		c.callRuntime("list_release")
	}
}

func (c *Context) genReturn(d ast.ReturnNode) {
	if d.Value != nil {
		kind := c.genExpr(d.Value)
		// Returning a local handle: take a reference before scope exit
		// releases it.
		if d.Value.Type == ast.Ident {
			if retain := rt.RetainFunc(kind); retain != "" {
				c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
				c.callRuntime(retain)
			}
		}
	} else {
		c.emit("mov $0, %rax")
	}

	if c.currentFunc == "main" {
		c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
		c.emit("call orion_exit")
		return
	}
	c.genScopeReleases()
	c.emit("leave")
	c.emit("ret")
}

// genTupleAssign evaluates every right-hand value into a fresh temporary,
// then stores each into its target left-to-right. That order is what makes
// (a, b) = (b, a) a swap.
func (c *Context) genTupleAssign(stmt *ast.Node, d ast.TupleAssignNode) {
	if len(d.Values) != len(d.Targets) {
		c.errorAt(stmt.Tok, "Scalar broadcast in tuple assignment is not implemented")
		return
	}

	valueSlots := make([]int, len(d.Values))
	valueKinds := make([]rt.Kind, len(d.Values))
	for i, v := range d.Values {
		valueKinds[i] = c.genExpr(v)
		valueSlots[i] = c.allocTemp()
		c.emitf("mov %%rax, -%d(%%rbp)", valueSlots[i])
	}

	for i, t := range d.Targets {
		switch t.Type {
		case ast.Ident:
			name := t.Data.(ast.IdentNode).Name
			if label, isGlobal := c.globals[name]; isGlobal {
				if _, shadowed := c.variables[name]; !shadowed {
					c.emitf("mov -%d(%%rbp), %%rax", valueSlots[i])
					c.emitf("mov %%rax, %s(%%rip)", label)
					continue
				}
			}
			v := c.declareVariable(name, valueKinds[i])
			c.emitf("mov -%d(%%rbp), %%rax", valueSlots[i])
			c.emitf("mov %%rax, -%d(%%rbp)", v.StackOffset)
		case ast.Index:
			idx := t.Data.(ast.IndexNode)
			objKind := c.genExpr(idx.Object)
			c.emit("push %rax")
			c.genExpr(idx.Key)
			c.emitf("mov %%rax, %s", c.spec.IntArgRegs[1])
			c.emitf("pop %s", c.spec.IntArgRegs[0])
			c.emitf("mov -%d(%%rbp), %s", valueSlots[i], c.spec.IntArgRegs[2])
			switch objKind {
			case rt.KindList:
				c.callRuntime("list_set")
			case rt.KindDict:
				c.callRuntime("dict_set")
			default:
				c.callRuntime("collection_set")
			}
		default:
			c.errorAt(t.Tok, "Invalid assignment target")
		}
	}
}

// countStackSlots conservatively bounds the 8-byte slots a statement list
// needs: named locals, loop bookkeeping, and tuple-assignment temporaries.
// Over-counting only costs frame bytes.
func countStackSlots(stmts []*ast.Node) int {
	count := 0
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil || n.Type == ast.FnDecl {
			return
		}
		switch d := n.Data.(type) {
		case ast.VarDeclNode:
			count++
		case ast.ForInNode:
			count += 4
		case ast.TupleAssignNode:
			count += len(d.Values) + len(d.Targets)
		case ast.LocalNode:
			count += len(d.Names)
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	for _, s := range stmts {
		walk(s)
	}
	return count
}

func (c *Context) errorAt(tok token.Token, format string, args ...interface{}) {
	c.diags = append(c.diags, util.Errorf(util.DiagCodegen, tok, format, args...))
}

// Emission helpers

func (c *Context) raw(s string) { c.text.WriteString(s) }

func (c *Context) emit(line string) {
	c.text.WriteString("    " + line + "\n")
}

func (c *Context) emitf(format string, args ...interface{}) {
	c.emit(fmt.Sprintf(format, args...))
}

func (c *Context) label(name string) {
	c.text.WriteString(name + ":\n")
}

func (c *Context) newLabel(prefix string) string {
	l := fmt.Sprintf("%s%d", prefix, c.labelCount)
	c.labelCount++
	return l
}

// callRuntime emits a call to a runtime symbol, recording it for the
// extern list and applying the platform symbol prefix.
func (c *Context) callRuntime(name string) {
	c.externs[name] = true
	c.emit("call " + c.spec.Symbol(name))
}

// loadAddr materializes the address of a data-section label. Mach-O needs
// RIP-relative addressing; ELF and COFF take the absolute form.
func (c *Context) loadAddr(label, reg string) {
	if c.spec.Platform == target.MacOS {
		c.emitf("lea %s(%%rip), %s", label, reg)
		return
	}
	c.emitf("mov $%s, %s", label, reg)
}
