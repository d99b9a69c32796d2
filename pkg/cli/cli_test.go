package cli

import "testing"

func TestParseLongAndShortFlags(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	var emit bool
	fs.String(&out, "output", "o", "a.out", "output file", "file")
	fs.Bool(&emit, "emit-asm", "S", false, "emit assembly")

	if err := fs.Parse([]string{"--output", "x.s", "-S", "input.or"}); err != nil {
		t.Fatal(err)
	}
	if out != "x.s" || !emit {
		t.Errorf("out=%q emit=%v", out, emit)
	}
	if len(fs.Args()) != 1 || fs.Args()[0] != "input.or" {
		t.Errorf("positional args = %v", fs.Args())
	}
}

func TestParseEqualsAndAttachedForms(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "output", "o", "", "output file", "file")

	if err := fs.Parse([]string{"--output=y.s"}); err != nil {
		t.Fatal(err)
	}
	if out != "y.s" {
		t.Errorf("out = %q", out)
	}

	if err := fs.Parse([]string{"-oz.s"}); err != nil {
		t.Fatal(err)
	}
	if out != "z.s" {
		t.Errorf("attached shorthand: out = %q", out)
	}
}

func TestUnknownFlagRejected(t *testing.T) {
	fs := NewFlagSet("test")
	if err := fs.Parse([]string{"--nope"}); err == nil {
		t.Error("unknown long flag accepted")
	}
	if err := fs.Parse([]string{"-z"}); err == nil {
		t.Error("unknown short flag accepted")
	}
}

func TestDoubleDashStopsParsing(t *testing.T) {
	fs := NewFlagSet("test")
	var emit bool
	fs.Bool(&emit, "emit-asm", "S", false, "emit assembly")
	if err := fs.Parse([]string{"--", "-S", "file"}); err != nil {
		t.Fatal(err)
	}
	if emit {
		t.Error("flag after -- was parsed")
	}
	if len(fs.Args()) != 2 {
		t.Errorf("args = %v", fs.Args())
	}
}

func TestMissingArgument(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "output", "o", "", "output file", "file")
	if err := fs.Parse([]string{"--output"}); err == nil {
		t.Error("missing value accepted")
	}
}

func TestWrap(t *testing.T) {
	lines := wrap("one two three four five", 9)
	for _, line := range lines {
		if len(line) > 9 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if len(lines) < 2 {
		t.Error("text was not wrapped")
	}
}
