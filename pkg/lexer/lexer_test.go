package lexer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/token"
)

type tok struct {
	Type  token.Type
	Value string
}

func lexAll(t *testing.T, input string) []token.Token {
	t.Helper()
	l := NewLexer([]rune(input), 0, config.NewConfig())
	toks, diag := l.Tokenize()
	if diag != nil {
		t.Fatalf("unexpected lex error: %v", diag)
	}
	return toks
}

func project(toks []token.Token) []tok {
	out := make([]tok, len(toks))
	for i, tk := range toks {
		out[i] = tok{tk.Type, tk.Value}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tok
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []tok{{token.EOF, ""}},
		},
		{
			name:  "Operators longest first",
			input: "** // == != <= >= += -= *= /= %= -> => = < >",
			expected: []tok{
				{token.Power, ""}, {token.FloorDiv, ""}, {token.EqEq, ""},
				{token.Neq, ""}, {token.Lte, ""}, {token.Gte, ""},
				{token.PlusAssign, ""}, {token.MinusAssign, ""}, {token.StarAssign, ""},
				{token.SlashAssign, ""}, {token.PercentAssign, ""},
				{token.Arrow, ""}, {token.FatArrow, ""},
				{token.Assign, ""}, {token.Lt, ""}, {token.Gt, ""},
				{token.EOF, ""},
			},
		},
		{
			name:  "Keywords and identifiers",
			input: "if elif else while for in return break continue pass global local struct enum foo _bar9",
			expected: []tok{
				{token.If, ""}, {token.Elif, ""}, {token.Else, ""}, {token.While, ""},
				{token.For, ""}, {token.In, ""}, {token.Return, ""}, {token.Break, ""},
				{token.Continue, ""}, {token.Pass, ""}, {token.Global, ""}, {token.Local, ""},
				{token.Struct, ""}, {token.Enum, ""},
				{token.Ident, "foo"}, {token.Ident, "_bar9"},
				{token.EOF, ""},
			},
		},
		{
			name:  "Type keywords",
			input: "int int64 float32 float64 string bool void",
			expected: []tok{
				{token.IntType, ""}, {token.Int64Type, ""}, {token.Float32Type, ""},
				{token.Float64Type, ""}, {token.StringType, ""}, {token.BoolType, ""},
				{token.VoidType, ""}, {token.EOF, ""},
			},
		},
		{
			name:  "Numbers",
			input: "0 42 3.14 10.0",
			expected: []tok{
				{token.Int, "0"}, {token.Int, "42"},
				{token.Float, "3.14"}, {token.Float, "10.0"},
				{token.EOF, ""},
			},
		},
		{
			name:  "Strings with escapes",
			input: `"hello" "a\nb" "q\"q" "tab\t" "nul\0"`,
			expected: []tok{
				{token.String, "hello"}, {token.String, "a\nb"}, {token.String, `q"q`},
				{token.String, "tab\t"}, {token.String, "nul\x00"},
				{token.EOF, ""},
			},
		},
		{
			name:  "Booleans",
			input: "True False",
			expected: []tok{
				{token.True, ""}, {token.False, ""}, {token.EOF, ""},
			},
		},
		{
			name:  "Comments discarded",
			input: "a # the rest is gone\nb",
			expected: []tok{
				{token.Ident, "a"}, {token.Newline, ""}, {token.Ident, "b"},
				{token.EOF, ""},
			},
		},
		{
			name:  "Consecutive newlines collapse",
			input: "a\n\n\n\nb",
			expected: []tok{
				{token.Ident, "a"}, {token.Newline, ""}, {token.Ident, "b"},
				{token.EOF, ""},
			},
		},
		{
			name:  "Word operators",
			input: "a and b or not c",
			expected: []tok{
				{token.Ident, "a"}, {token.And, ""}, {token.Ident, "b"},
				{token.Or, ""}, {token.Not, ""}, {token.Ident, "c"},
				{token.EOF, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := project(lexAll(t, tt.input))
			if diff := cmp.Diff(tt.expected, got, cmp.AllowUnexported(tok{})); diff != "" {
				t.Errorf("token mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPositions(t *testing.T) {
	toks := lexAll(t, "ab = 5\n  cd")
	want := []struct {
		line, col int
	}{
		{1, 1}, // ab
		{1, 4}, // =
		{1, 6}, // 5
		{1, 7}, // newline
		{2, 3}, // cd
		{2, 5}, // EOF
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Line != w.line || toks[i].Column != w.col {
			t.Errorf("token %d: position %d:%d, want %d:%d",
				i, toks[i].Line, toks[i].Column, w.line, w.col)
		}
	}
}

// Joining every lexeme back together must lex to the same token sequence:
// the scan loses only whitespace and comments.
func TestLexemeRoundTrip(t *testing.T) {
	inputs := []string{
		"fn add(a, b) -> int { return a + b }",
		"a = 5; b = a ** 2 // 3\nwhile a < b { a += 1 }",
		"d = {1: 100, 2: 200}\nl = [1, 2, 3]\n(x, y) = (y, x)",
		"if a == 1 { pass } elif a != 2 { pass } else { pass }",
	}
	for _, input := range inputs {
		first := lexAll(t, input)
		var parts []string
		for _, tk := range first {
			if lx := tk.Lexeme(); lx != "" {
				parts = append(parts, lx)
			}
		}
		second := lexAll(t, strings.Join(parts, " "))
		if diff := cmp.Diff(project(first), project(second), cmp.AllowUnexported(tok{})); diff != "" {
			t.Errorf("round trip changed tokens for %q (-first +second):\n%s", input, diff)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := NewLexer([]rune(`a = "oops`), 0, config.NewConfig())
	_, diag := l.Tokenize()
	if diag == nil {
		t.Fatal("expected a lex error for an unterminated string")
	}
	if !strings.Contains(diag.Msg, "Unterminated string") {
		t.Errorf("unexpected message: %s", diag.Msg)
	}
}

func TestInvalidCharacter(t *testing.T) {
	l := NewLexer([]rune("a = 5 @"), 0, config.NewConfig())
	_, diag := l.Tokenize()
	if diag == nil {
		t.Fatal("expected a lex error for '@'")
	}
}

func TestSemicolonsFeatureGate(t *testing.T) {
	cfg := config.NewConfig()
	toks := lexAll(t, "a = 1; b = 2")
	if toks[3].Type != token.Semi {
		t.Fatal("';' should lex as Semi while the feature is on")
	}

	cfg.SetFeature(config.FeatSemicolons, false)
	l := NewLexer([]rune("a = 1; b = 2"), 0, cfg)
	_, diag := l.Tokenize()
	if diag == nil {
		t.Fatal("expected a lex error for ';' with the semicolons feature off")
	}
	if !strings.Contains(diag.Msg, "not enabled") {
		t.Errorf("unexpected message: %s", diag.Msg)
	}
}
