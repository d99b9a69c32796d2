package compiler

import (
	"strings"
	"testing"

	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/util"
)

func compile(t *testing.T, source string) string {
	t.Helper()
	cfg := config.NewConfig()
	if err := cfg.SetTarget("linux"); err != nil {
		t.Fatal(err)
	}
	cfg.SetAllWarnings(false)
	asm, diags := Compile([]byte(source), "test.or", cfg)
	if len(diags) > 0 {
		t.Fatalf("compile error: %v", diags[0])
	}
	return asm
}

func contains(t *testing.T, asm string, snippets ...string) {
	t.Helper()
	for _, s := range snippets {
		if !strings.Contains(asm, s) {
			t.Errorf("assembly missing %q", s)
		}
	}
}

// The end-to-end scenarios: each complete program must compile cleanly and
// carry the landmarks of its lowering.
func TestScenarioArithmetic(t *testing.T) {
	asm := compile(t, "fn main() { print(2 + 3 * 4) }")
	contains(t, asm, "imul %rbx, %rax", "add %rbx, %rax", "call print_int", "call orion_main")
}

func TestScenarioPowerRightAssociative(t *testing.T) {
	asm := compile(t, "fn main() { print(2 ** 3 ** 2) }")
	// Two inline power loops, innermost first.
	if strings.Count(asm, "dec %rcx") != 2 {
		t.Errorf("expected two power loops:\n%s", asm)
	}
}

func TestScenarioListAndLoop(t *testing.T) {
	asm := compile(t, `fn main() { a = [10, 20, 30]
s = 0
for x in a { s = s + x }
print(s) }`)
	contains(t, asm, "call list_from_data", "call list_len", "call list_get", "call print_int")
}

func TestScenarioDict(t *testing.T) {
	asm := compile(t, `fn main() { d = {1: 100, 2: 200}
print(d[2]) }`)
	contains(t, asm, "call dict_new", "call dict_set", "call dict_get")
}

func TestScenarioTupleSwap(t *testing.T) {
	asm := compile(t, `fn main() { a = 1
b = 2
(a, b) = (b, a)
print(a)
print(b) }`)
	if strings.Count(asm, "call print_int") != 2 {
		t.Error("expected two prints")
	}
}

func TestScenarioRecursion(t *testing.T) {
	asm := compile(t, `fn fib(n) => if n < 2 { n } else { fib(n-1) + fib(n-2) }
fn main() { print(fib(10)) }`)
	contains(t, asm, "fib:", "call fib", "setl %al", "call print_int")
}

func TestCompileErrorsPropagate(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetAllWarnings(false)

	_, diags := Compile([]byte(`a = "unterminated`), "bad.or", cfg)
	if len(diags) == 0 || diags[0].Kind != util.DiagLex {
		t.Error("lex error did not surface as a structured diagnostic")
	}

	_, diags = Compile([]byte("fn f( { }"), "bad.or", cfg)
	if len(diags) == 0 || diags[0].Kind != util.DiagParse {
		t.Error("parse error did not surface as a structured diagnostic")
	}

	_, diags = Compile([]byte("fn main() { break }"), "bad.or", cfg)
	if len(diags) == 0 || diags[0].Kind != util.DiagCodegen {
		t.Error("codegen error did not surface as a structured diagnostic")
	}
}

func TestConstantFoldingFeature(t *testing.T) {
	source := "fn main() { print(2 + 3 * 4) }"

	cfg := config.NewConfig()
	cfg.SetTarget("linux")
	cfg.SetAllWarnings(false)
	cfg.SetFeature(config.FeatFold, true)
	asm, diags := Compile([]byte(source), "test.or", cfg)
	if len(diags) > 0 {
		t.Fatalf("compile error: %v", diags[0])
	}
	if !strings.Contains(asm, "mov $14, %rax") {
		t.Error("folded constant not emitted directly")
	}
	if strings.Contains(asm, "imul %rbx, %rax") {
		t.Error("folding left the multiply behind")
	}

	// Folding stays off by default.
	asm = compile(t, source)
	if !strings.Contains(asm, "imul %rbx, %rax") {
		t.Error("default build should not fold")
	}
}

func TestAssemblyShape(t *testing.T) {
	asm := compile(t, "fn main() { print(1) }")
	// Data section first, then text with the entry point, then functions.
	dataIdx := strings.Index(asm, ".section .data")
	textIdx := strings.Index(asm, ".section .text")
	entryIdx := strings.Index(asm, "_start:")
	mainIdx := strings.Index(asm, "orion_main:")
	if !(dataIdx >= 0 && dataIdx < textIdx && textIdx < entryIdx && entryIdx < mainIdx) {
		t.Errorf("section layout out of order: data=%d text=%d entry=%d main=%d",
			dataIdx, textIdx, entryIdx, mainIdx)
	}
}
