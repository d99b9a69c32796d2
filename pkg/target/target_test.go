package target

import (
	"strings"
	"testing"
)

func TestByName(t *testing.T) {
	for name, platform := range map[string]Platform{
		"linux": Linux, "macos": MacOS, "darwin": MacOS,
		"windows": Windows, "LINUX": Linux,
	} {
		spec, ok := ByName(name)
		if !ok || spec.Platform != platform {
			t.Errorf("ByName(%q) = %v, %v", name, spec.Platform, ok)
		}
	}
	if _, ok := ByName("plan9"); ok {
		t.Error("unknown target accepted")
	}
}

func TestHostDefaultsToLinux(t *testing.T) {
	if Host("freebsd").Platform != Linux {
		t.Error("unrecognized GOOS should default to linux")
	}
	if Host("darwin").Platform != MacOS || Host("windows").Platform != Windows {
		t.Error("host mapping broken")
	}
}

func TestABITables(t *testing.T) {
	linux, _ := ByName("linux")
	windows, _ := ByName("windows")
	macos, _ := ByName("macos")

	if got := strings.Join(linux.IntArgRegs, ","); got != "%rdi,%rsi,%rdx,%rcx,%r8,%r9" {
		t.Errorf("linux arg regs = %s", got)
	}
	if got := strings.Join(windows.IntArgRegs, ","); got != "%rcx,%rdx,%r8,%r9" {
		t.Errorf("windows arg regs = %s", got)
	}

	if linux.ShadowSpace != 0 || windows.ShadowSpace != 32 {
		t.Error("shadow space table wrong")
	}
	if !linux.HasRedZone || windows.HasRedZone {
		t.Error("red zone table wrong")
	}
	if linux.StackAlignment != 16 || macos.StackAlignment != 16 || windows.StackAlignment != 16 {
		t.Error("alignment table wrong")
	}
	if linux.SymbolPrefix != "" || macos.SymbolPrefix != "_" || windows.SymbolPrefix != "" {
		t.Error("symbol prefix table wrong")
	}
	if windows.ExeSuffix != ".exe" || linux.ExeSuffix != "" {
		t.Error("exe suffix table wrong")
	}
}

func TestSections(t *testing.T) {
	macos, _ := ByName("macos")
	if macos.DataSection != ".section __DATA,__data" || macos.TextSection != ".section __TEXT,__text" {
		t.Error("Mach-O sections wrong")
	}
	linux, _ := ByName("linux")
	if linux.DataSection != ".section .data" || linux.TextSection != ".section .text" {
		t.Error("ELF sections wrong")
	}
}

func TestSymbolAndEntry(t *testing.T) {
	macos, _ := ByName("macos")
	if macos.Symbol("printf") != "_printf" {
		t.Error("macOS symbol prefix not applied")
	}
	if macos.EntrySymbol() != "_main" {
		t.Errorf("macOS entry = %s", macos.EntrySymbol())
	}
	linux, _ := ByName("linux")
	if linux.Symbol("printf") != "printf" || linux.EntrySymbol() != "_start" {
		t.Error("linux symbols wrong")
	}
	windows, _ := ByName("windows")
	if windows.EntrySymbol() != "main" {
		t.Errorf("windows entry = %s", windows.EntrySymbol())
	}
}

func TestLinkCommandExpansion(t *testing.T) {
	linux, _ := ByName("linux")
	got := strings.Join(linux.LinkCommandFor("prog", "prog.s"), " ")
	if got != "gcc -o prog prog.s runtime.o -lm" {
		t.Errorf("linux link command = %q", got)
	}
	windows, _ := ByName("windows")
	got = strings.Join(windows.LinkCommandFor("prog.exe", "prog.s"), " ")
	if got != "gcc -m64 -o prog.exe prog.s runtime.o" {
		t.Errorf("windows link command = %q", got)
	}
	macos, _ := ByName("macos")
	if macos.LinkCommand[0] != "clang" {
		t.Error("macOS links with clang")
	}
}
