package codegen

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/orion-lang/orion/pkg/ast"
	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/rt"
	"github.com/orion-lang/orion/pkg/target"
	"github.com/orion-lang/orion/pkg/token"
	"github.com/orion-lang/orion/pkg/util"
)

// genExpr emits code leaving the expression value in %rax and returns the
// static kind of that value.
func (c *Context) genExpr(node *ast.Node) rt.Kind {
	if node == nil {
		c.emit("mov $0, %rax")
		return rt.KindInt
	}

	switch d := node.Data.(type) {
	case ast.IntLitNode:
		c.moveImm(d.Value, "%rax")
		return rt.KindInt

	case ast.FloatLitNode:
		c.emitf("movabs $%d, %%rax", int64(math.Float64bits(d.Value)))
		return rt.KindFloat

	case ast.BoolLitNode:
		if d.Value {
			c.emit("mov $1, %rax")
		} else {
			c.emit("mov $0, %rax")
		}
		return rt.KindBool

	case ast.StringLitNode:
		label := c.addString(d.Value)
		c.loadAddr(label, "%rax")
		return rt.KindString

	case ast.IdentNode:
		return c.genIdent(node, d)

	case ast.BinaryOpNode:
		return c.genBinary(d)

	case ast.UnaryOpNode:
		kind := c.genExpr(d.Expr)
		switch d.Op {
		case token.Minus:
			c.emit("neg %rax")
			return kind
		case token.Not:
			c.emit("test %rax, %rax")
			c.emit("setz %al")
			c.emit("movzx %al, %rax")
			return rt.KindBool
		case token.Plus:
			return kind
		}
		return kind

	case ast.CallNode:
		return c.genCall(node, d)

	case ast.IndexNode:
		return c.genIndex(d)

	case ast.TupleNode:
		// Outside assignment a tuple evaluates to its first element.
		if len(d.Elements) == 0 {
			c.emit("mov $0, %rax")
			return rt.KindInt
		}
		return c.genExpr(d.Elements[0])

	case ast.ListLitNode:
		return c.genListLit(d)

	case ast.DictLitNode:
		return c.genDictLit(d)
	}

	c.errorAt(node.Tok, "Cannot generate code for this expression")
	return rt.KindUnknown
}

func (c *Context) genIdent(node *ast.Node, d ast.IdentNode) rt.Kind {
	if v, ok := c.variables[d.Name]; ok {
		c.emitf("mov -%d(%%rbp), %%rax", v.StackOffset)
		return v.Kind
	}
	if label, ok := c.globals[d.Name]; ok {
		c.emitf("mov %s(%%rip), %%rax", label)
		return rt.KindUnknown
	}
	if v, ok := c.enums[d.Name]; ok {
		c.moveImm(v, "%rax")
		return rt.KindInt
	}

	util.Warn(c.cfg, config.WarnUnknownIdent, node.Tok,
		"Unknown variable '%s', using fallback slot", d.Name)
	c.emitf("# unknown variable %s", d.Name)
	c.emit("mov -8(%rbp), %rax")
	return rt.KindUnknown
}

func (c *Context) genBinary(d ast.BinaryOpNode) rt.Kind {
	// and/or lower to branches so the right operand only runs when the
	// outcome is still open.
	switch d.Op {
	case token.And:
		falseLabel := c.newLabel("and_false")
		endLabel := c.newLabel("and_end")
		c.genExpr(d.Left)
		c.emit("test %rax, %rax")
		c.emit("jz " + falseLabel)
		c.genExpr(d.Right)
		c.emit("test %rax, %rax")
		c.emit("jz " + falseLabel)
		c.emit("mov $1, %rax")
		c.emit("jmp " + endLabel)
		c.label(falseLabel)
		c.emit("mov $0, %rax")
		c.label(endLabel)
		return rt.KindBool
	case token.Or:
		trueLabel := c.newLabel("or_true")
		endLabel := c.newLabel("or_end")
		c.genExpr(d.Left)
		c.emit("test %rax, %rax")
		c.emit("jnz " + trueLabel)
		c.genExpr(d.Right)
		c.emit("test %rax, %rax")
		c.emit("jnz " + trueLabel)
		c.emit("mov $0, %rax")
		c.emit("jmp " + endLabel)
		c.label(trueLabel)
		c.emit("mov $1, %rax")
		c.label(endLabel)
		return rt.KindBool
	}

	// Left evaluates first and parks on the stack; after the pops the left
	// operand is in %rax and the right in %rbx, which is the order the
	// non-commutative instructions below rely on.
	leftKind := c.genExpr(d.Left)
	c.emit("push %rax")
	rightKind := c.genExpr(d.Right)
	c.emit("mov %rax, %rbx")
	c.emit("pop %rax")

	switch d.Op {
	case token.Plus:
		c.emit("add %rbx, %rax")
	case token.Minus:
		c.emit("sub %rbx, %rax")
	case token.Star:
		c.emit("imul %rbx, %rax")
	case token.Slash, token.FloorDiv:
		c.emit("xor %rdx, %rdx")
		c.emit("idiv %rbx")
	case token.Percent:
		c.emit("xor %rdx, %rdx")
		c.emit("idiv %rbx")
		c.emit("mov %rdx, %rax")
	case token.Power:
		c.genPower()
	case token.EqEq:
		return c.genCompare("sete")
	case token.Neq:
		return c.genCompare("setne")
	case token.Lt:
		return c.genCompare("setl")
	case token.Lte:
		return c.genCompare("setle")
	case token.Gt:
		return c.genCompare("setg")
	case token.Gte:
		return c.genCompare("setge")
	}

	if leftKind == rt.KindFloat || rightKind == rt.KindFloat {
		return rt.KindFloat
	}
	return rt.KindInt
}

func (c *Context) genCompare(setcc string) rt.Kind {
	c.emit("cmp %rbx, %rax")
	c.emit(setcc + " %al")
	c.emit("movzx %al, %rax")
	return rt.KindBool
}

// genPower emits the inline exponentiation loop: result starts at 1 and is
// multiplied by the base while the exponent counts down, with a guard for
// a zero exponent. Base is in %rax, exponent in %rbx.
func (c *Context) genPower() {
	loopLabel := c.newLabel("pow_loop")
	doneLabel := c.newLabel("pow_done")
	c.emit("push %rcx")
	c.emit("push %rdx")
	c.emit("mov %rax, %rdx")
	c.emit("mov %rbx, %rcx")
	c.emit("mov $1, %rax")
	c.emit("test %rcx, %rcx")
	c.emit("jz " + doneLabel)
	c.label(loopLabel)
	c.emit("imul %rdx, %rax")
	c.emit("dec %rcx")
	c.emit("jnz " + loopLabel)
	c.label(doneLabel)
	c.emit("pop %rdx")
	c.emit("pop %rcx")
}

func (c *Context) genIndex(d ast.IndexNode) rt.Kind {
	objKind := c.genExpr(d.Object)
	c.emit("push %rax")
	c.genExpr(d.Key)
	c.emitf("mov %%rax, %s", c.spec.IntArgRegs[1])
	c.emitf("pop %s", c.spec.IntArgRegs[0])

	switch objKind {
	case rt.KindList:
		c.callRuntime("list_get")
	case rt.KindDict:
		c.callRuntime("dict_get")
	case rt.KindRange:
		c.callRuntime("range_get")
	default:
		// No static type: read the heap object's tag at runtime.
		c.callRuntime("collection_get")
	}
	return rt.KindInt
}

// genCallArgs evaluates every argument left to right onto the stack, then
// pops them into the ABI argument registers. Earlier values stay parked on
// the stack while later arguments run, so nothing is clobbered.
func (c *Context) genCallArgs(args []*ast.Node) []rt.Kind {
	kinds := make([]rt.Kind, len(args))
	for i, arg := range args {
		kinds[i] = c.genExpr(arg)
		c.emit("push %rax")
	}
	for i := len(args) - 1; i >= 0; i-- {
		c.emitf("pop %s", c.spec.IntArgRegs[i])
	}
	return kinds
}

func (c *Context) genCall(node *ast.Node, d ast.CallNode) rt.Kind {
	switch d.Name {
	case "print":
		return c.genPrint(node, d)
	case "input":
		return c.genInput(node, d)
	case "range":
		return c.genRange(node, d)
	case "len":
		return c.genLen(node, d)
	case "str", "int", "float", "bool":
		return c.genCoercion(node, d)
	}

	if len(d.Args) > len(c.spec.IntArgRegs) {
		c.errorAt(node.Tok, "Call to '%s' passes %d arguments; the %s ABI passes at most %d in registers",
			d.Name, len(d.Args), c.spec.Name, len(c.spec.IntArgRegs))
		return rt.KindUnknown
	}

	// Runtime symbols are callable by name without declaration.
	if sig, ok := rt.Lookup(d.Name); ok {
		if len(d.Args) != sig.Args {
			c.errorAt(node.Tok, "'%s' takes %d arguments, got %d", d.Name, sig.Args, len(d.Args))
			return sig.Ret
		}
		c.genCallArgs(d.Args)
		c.callRuntime(d.Name)
		return sig.Ret
	}

	c.genCallArgs(d.Args)
	symbol := d.Name
	if symbol == "main" {
		symbol = mainSymbol
	}
	c.emit("call " + symbol)

	if kind, ok := c.fnReturn[d.Name]; ok {
		return kind
	}
	util.Warn(c.cfg, config.WarnUnknownIdent, node.Tok,
		"Call to undeclared function '%s'", d.Name)
	return rt.KindUnknown
}

func (c *Context) genPrint(node *ast.Node, d ast.CallNode) rt.Kind {
	if len(d.Args) != 1 {
		c.errorAt(node.Tok, "'print' takes 1 argument, got %d", len(d.Args))
		return rt.KindVoid
	}
	kind := c.genExpr(d.Args[0])
	c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
	switch kind {
	case rt.KindString:
		c.emit("call print_str")
	case rt.KindFloat:
		c.emit("call print_float")
	case rt.KindBool:
		c.emit("call print_bool")
	case rt.KindInt:
		c.emit("call print_int")
	case rt.KindList:
		c.callRuntime("list_print")
	default:
		// Unknown static type: let the runtime heuristic decide.
		c.callRuntime("print_smart")
	}
	return rt.KindVoid
}

func (c *Context) genInput(node *ast.Node, d ast.CallNode) rt.Kind {
	switch len(d.Args) {
	case 0:
		c.callRuntime("orion_input")
	case 1:
		c.genExpr(d.Args[0])
		c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
		c.callRuntime("orion_input_prompt")
	default:
		c.errorAt(node.Tok, "'input' takes at most 1 argument, got %d", len(d.Args))
	}
	return rt.KindString
}

func (c *Context) genRange(node *ast.Node, d ast.CallNode) rt.Kind {
	switch len(d.Args) {
	case 1:
		c.genCallArgs(d.Args)
		c.callRuntime("range_new_stop")
	case 2:
		c.genCallArgs(d.Args)
		c.callRuntime("range_new_start_stop")
	case 3:
		c.genCallArgs(d.Args)
		c.callRuntime("range_new")
	default:
		c.errorAt(node.Tok, "'range' takes 1 to 3 arguments, got %d", len(d.Args))
	}
	return rt.KindRange
}

func (c *Context) genLen(node *ast.Node, d ast.CallNode) rt.Kind {
	if len(d.Args) != 1 {
		c.errorAt(node.Tok, "'len' takes 1 argument, got %d", len(d.Args))
		return rt.KindInt
	}
	kind := c.genExpr(d.Args[0])
	c.emitf("mov %%rax, %s", c.spec.IntArgRegs[0])
	switch kind {
	case rt.KindDict:
		c.callRuntime("dict_len")
	case rt.KindRange:
		c.callRuntime("range_len")
	case rt.KindString:
		c.externs["strlen"] = true
		c.emit("call " + c.spec.Symbol("strlen"))
	default:
		c.callRuntime("list_len")
	}
	return rt.KindInt
}

// genCoercion lowers the str/int/float/bool builtins through the typed
// runtime conversion entry points.
func (c *Context) genCoercion(node *ast.Node, d ast.CallNode) rt.Kind {
	if len(d.Args) != 1 {
		c.errorAt(node.Tok, "'%s' takes 1 argument, got %d", d.Name, len(d.Args))
		return rt.KindUnknown
	}
	kind := c.genExpr(d.Args[0])
	arg0 := c.spec.IntArgRegs[0]

	call := func(name string) {
		c.emitf("mov %%rax, %s", arg0)
		c.callRuntime(name)
	}

	switch d.Name {
	case "str":
		switch kind {
		case rt.KindFloat:
			call("__orion_float_to_string")
		case rt.KindBool:
			call("__orion_bool_to_string")
		case rt.KindString:
			// already a string
		default:
			call("__orion_int_to_string")
		}
		return rt.KindString
	case "int":
		switch kind {
		case rt.KindString:
			call("__orion_string_to_int")
		case rt.KindFloat:
			call("__orion_float_to_int")
		case rt.KindBool:
			call("__orion_bool_to_int")
		}
		return rt.KindInt
	case "float":
		switch kind {
		case rt.KindString:
			call("__orion_string_to_float")
		case rt.KindBool:
			call("__orion_bool_to_float")
		case rt.KindFloat:
			// already a float
		default:
			call("__orion_int_to_float")
		}
		return rt.KindFloat
	case "bool":
		c.emit("test %rax, %rax")
		c.emit("setne %al")
		c.emit("movzx %al, %rax")
		return rt.KindBool
	}
	return rt.KindUnknown
}

// genListLit collects the elements into a temporary buffer, builds the
// list from it, then frees the buffer. %r12 carries the buffer across
// element evaluation; it is callee-saved, so calls inside elements keep it.
func (c *Context) genListLit(d ast.ListLitNode) rt.Kind {
	arg0, arg1 := c.spec.IntArgRegs[0], c.spec.IntArgRegs[1]

	if len(d.Elements) == 0 {
		c.emitf("mov $4, %s", arg0)
		c.callRuntime("list_new")
		return rt.KindList
	}

	c.emit("push %r12")
	c.emitf("mov $%d, %s", len(d.Elements)*8, arg0)
	c.callRuntime("orion_malloc")
	c.emit("mov %rax, %r12")

	for i, elem := range d.Elements {
		c.genExpr(elem)
		c.emitf("movq %%rax, %d(%%r12)", i*8)
	}

	c.emitf("mov %%r12, %s", arg0)
	c.emitf("mov $%d, %s", len(d.Elements), arg1)
	c.callRuntime("list_from_data")

	c.emit("push %rax")
	c.emitf("mov %%r12, %s", arg0)
	c.callRuntime("orion_free")
	c.emit("pop %rax")
	c.emit("pop %r12")
	return rt.KindList
}

// genDictLit builds the dict then inserts each pair, keeping the dict and
// the evaluated key in callee-saved registers across pair evaluation.
func (c *Context) genDictLit(d ast.DictLitNode) rt.Kind {
	arg0, arg1, arg2 := c.spec.IntArgRegs[0], c.spec.IntArgRegs[1], c.spec.IntArgRegs[2]

	capacity := int64(8)
	if n := int64(len(d.Pairs)); 2*n > capacity {
		capacity = 2 * n
	}

	c.emit("push %r12")
	c.emit("push %r13")
	c.emitf("mov $%d, %s", capacity, arg0)
	c.callRuntime("dict_new")
	c.emit("mov %rax, %r12")

	for _, pair := range d.Pairs {
		c.genExpr(pair.Key)
		c.emit("mov %rax, %r13")
		c.genExpr(pair.Value)
		c.emitf("mov %%rax, %s", arg2)
		c.emitf("mov %%r13, %s", arg1)
		c.emitf("mov %%r12, %s", arg0)
		c.callRuntime("dict_set")
	}

	c.emit("mov %r12, %rax")
	c.emit("pop %r13")
	c.emit("pop %r12")
	return rt.KindDict
}

// staticKind infers the kind of an expression without emitting code. It is
// the same lattice genExpr computes, used by the return-kind prepass.
func (c *Context) staticKind(node *ast.Node) rt.Kind {
	if node == nil {
		return rt.KindInt
	}
	switch d := node.Data.(type) {
	case ast.IntLitNode:
		return rt.KindInt
	case ast.FloatLitNode:
		return rt.KindFloat
	case ast.BoolLitNode:
		return rt.KindBool
	case ast.StringLitNode:
		return rt.KindString
	case ast.ListLitNode:
		return rt.KindList
	case ast.DictLitNode:
		return rt.KindDict
	case ast.IdentNode:
		if v, ok := c.variables[d.Name]; ok {
			return v.Kind
		}
		if _, ok := c.enums[d.Name]; ok {
			return rt.KindInt
		}
		return rt.KindInt
	case ast.UnaryOpNode:
		if d.Op == token.Not {
			return rt.KindBool
		}
		return c.staticKind(d.Expr)
	case ast.BinaryOpNode:
		switch d.Op {
		case token.And, token.Or, token.EqEq, token.Neq,
			token.Lt, token.Lte, token.Gt, token.Gte:
			return rt.KindBool
		}
		if c.staticKind(d.Left) == rt.KindFloat || c.staticKind(d.Right) == rt.KindFloat {
			return rt.KindFloat
		}
		return rt.KindInt
	case ast.CallNode:
		switch d.Name {
		case "print":
			return rt.KindVoid
		case "input", "str":
			return rt.KindString
		case "range":
			return rt.KindRange
		case "len", "int":
			return rt.KindInt
		case "float":
			return rt.KindFloat
		case "bool":
			return rt.KindBool
		}
		if sig, ok := rt.Lookup(d.Name); ok {
			return sig.Ret
		}
		if kind, ok := c.fnReturn[d.Name]; ok {
			return kind
		}
		return rt.KindInt
	case ast.IndexNode:
		return rt.KindInt
	case ast.TupleNode:
		if len(d.Elements) > 0 {
			return c.staticKind(d.Elements[0])
		}
		return rt.KindInt
	}
	return rt.KindUnknown
}

// moveImm emits the cheapest move of an immediate into a register,
// switching to movabs for values outside the signed 32-bit range.
func (c *Context) moveImm(value int64, reg string) {
	if value >= math.MinInt32 && value <= math.MaxInt32 {
		c.emitf("mov $%d, %s", value, reg)
		return
	}
	c.emitf("movabs $%d, %s", value, reg)
}

// String pool: labels are content-addressed with xxhash so identical
// literals collapse to one data-section entry with a stable name.
func (c *Context) addString(s string) string {
	if label, ok := c.strings[s]; ok {
		return label
	}
	label := fmt.Sprintf("str_%016x", xxhash.Sum64String(s))
	c.strings[s] = label
	c.stringOrder = append(c.stringOrder, s)
	return label
}

func escapeAsm(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case '\\':
			sb.WriteString("\\\\")
		case '"':
			sb.WriteString("\\\"")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		case 0:
			sb.WriteString("\\000")
		default:
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

// Data section and extern rendering

func (c *Context) renderDataSection(out *strings.Builder) {
	out.WriteString(c.spec.DataSection + "\n")
	out.WriteString("format_int: .string \"%d\\n\"\n")
	out.WriteString("format_str: .string \"%s\\n\"\n")
	out.WriteString("format_float: .string \"%.2f\\n\"\n")
	out.WriteString("lit_true: .string \"True\"\n")
	out.WriteString("lit_false: .string \"False\"\n")

	for _, s := range c.stringOrder {
		fmt.Fprintf(out, "%s: .string \"%s\"\n", c.strings[s], escapeAsm(s))
	}
	for _, name := range c.globalOrder {
		fmt.Fprintf(out, "%s: .quad 0\n", c.globals[name])
	}
}

func (c *Context) renderExterns(out *strings.Builder) {
	names := make([]string, 0, len(c.externs))
	for name := range c.externs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, ".extern %s\n", c.spec.Symbol(name))
	}
}

// Assembly-level support functions: the print helpers and the exit
// wrapper. They sit between the generated code and libc so call sites stay
// one instruction.
func (c *Context) genSupportFunctions() {
	arg0, arg1 := c.spec.IntArgRegs[0], c.spec.IntArgRegs[1]
	c.externs["printf"] = true

	c.raw("# Runtime support functions\n")

	c.label("print_str")
	c.emit("push %rbp")
	c.emit("mov %rsp, %rbp")
	c.shadow()
	c.emitf("mov %s, %s", arg0, arg1)
	c.loadAddr("format_str", arg0)
	c.varargSetup(0)
	c.emit("call " + c.spec.Symbol("printf"))
	c.emit("leave")
	c.emit("ret")
	c.raw("\n")

	c.label("print_int")
	c.emit("push %rbp")
	c.emit("mov %rsp, %rbp")
	c.shadow()
	c.emitf("mov %s, %s", arg0, arg1)
	c.loadAddr("format_int", arg0)
	c.varargSetup(0)
	c.emit("call " + c.spec.Symbol("printf"))
	c.emit("leave")
	c.emit("ret")
	c.raw("\n")

	c.label("print_float")
	c.emit("push %rbp")
	c.emit("mov %rsp, %rbp")
	c.shadow()
	if c.spec.Platform == target.Windows {
		// MS x64 varargs want the double in both the GP slot and xmm1.
		c.emitf("mov %s, %s", arg0, arg1)
		c.emitf("movq %s, %%xmm1", arg1)
	} else {
		c.emitf("movq %s, %%xmm0", arg0)
	}
	c.loadAddr("format_float", arg0)
	c.varargSetup(1)
	c.emit("call " + c.spec.Symbol("printf"))
	c.emit("leave")
	c.emit("ret")
	c.raw("\n")

	falseLabel := c.newLabel("bool_false")
	doneLabel := c.newLabel("bool_print")
	c.label("print_bool")
	c.emit("push %rbp")
	c.emit("mov %rsp, %rbp")
	c.shadow()
	c.emitf("test %s, %s", arg0, arg0)
	c.emit("jz " + falseLabel)
	c.loadAddr("lit_true", arg1)
	c.emit("jmp " + doneLabel)
	c.label(falseLabel)
	c.loadAddr("lit_false", arg1)
	c.label(doneLabel)
	c.loadAddr("format_str", arg0)
	c.varargSetup(0)
	c.emit("call " + c.spec.Symbol("printf"))
	c.emit("leave")
	c.emit("ret")
	c.raw("\n")

	c.label("orion_exit")
	switch c.spec.Platform {
	case target.Linux:
		c.emit("mov $60, %rax")
		c.emit("syscall")
	case target.MacOS:
		c.emit("mov $0x2000001, %rax")
		c.emit("syscall")
	case target.Windows:
		c.externs["exit"] = true
		c.shadow()
		c.emit("call " + c.spec.Symbol("exit"))
	}
	c.raw("\n")
}

// shadow reserves the caller-side shadow space targets that require it.
func (c *Context) shadow() {
	if c.spec.ShadowSpace > 0 {
		c.emitf("sub $%d, %%rsp", c.spec.ShadowSpace)
	}
}

// varargSetup emits the AL vector-count handshake for variadic calls.
// System V reads AL as the vector register count; the Windows table entry
// asks for it too, and an extra byte move is harmless there.
func (c *Context) varargSetup(vectorArgs int) {
	c.emitf("mov $%d, %%al", vectorArgs)
}
