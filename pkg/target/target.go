// Package target describes the per-platform ABI the code generator emits
// for: argument registers, stack discipline, symbol naming, section
// directives and the toolchain command that links the result.
package target

import "strings"

type Platform int

const (
	Linux Platform = iota
	MacOS
	Windows
)

// Spec is a data-driven ABI record. One exists per supported platform; the
// code generator reads most ABI choices from its fields, and switches on
// Platform directly for address loading, print_float and orion_exit.
type Spec struct {
	Platform Platform
	Name     string

	// Calling convention
	IntArgRegs      []string
	CalleeSaved     []string
	ShadowSpace     int
	HasRedZone      bool
	VarargALNeeded  bool
	StackAlignment  int
	ReturnRegister  string

	// Symbol and file naming
	SymbolPrefix string
	AsmSuffix    string
	ExeSuffix    string

	// Section directives
	DataSection string
	TextSection string

	// Link command template with {exe} and {asm} placeholders; the runtime
	// object is linked alongside.
	LinkCommand []string
}

var specs = [...]Spec{
	Linux: {
		Platform:       Linux,
		Name:           "linux",
		IntArgRegs:     []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"},
		CalleeSaved:    []string{"%rbx", "%rbp", "%r12", "%r13", "%r14", "%r15"},
		ShadowSpace:    0,
		HasRedZone:     true,
		VarargALNeeded: false,
		StackAlignment: 16,
		ReturnRegister: "%rax",
		SymbolPrefix:   "",
		AsmSuffix:      ".s",
		ExeSuffix:      "",
		DataSection:    ".section .data",
		TextSection:    ".section .text",
		LinkCommand:    []string{"gcc", "-o", "{exe}", "{asm}", "runtime.o", "-lm"},
	},
	MacOS: {
		Platform:       MacOS,
		Name:           "macos",
		IntArgRegs:     []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"},
		CalleeSaved:    []string{"%rbx", "%rbp", "%r12", "%r13", "%r14", "%r15"},
		ShadowSpace:    0,
		HasRedZone:     true,
		VarargALNeeded: false,
		StackAlignment: 16,
		ReturnRegister: "%rax",
		SymbolPrefix:   "_",
		AsmSuffix:      ".s",
		ExeSuffix:      "",
		DataSection:    ".section __DATA,__data",
		TextSection:    ".section __TEXT,__text",
		LinkCommand:    []string{"clang", "-o", "{exe}", "{asm}", "runtime.o", "-lm"},
	},
	Windows: {
		Platform:       Windows,
		Name:           "windows",
		IntArgRegs:     []string{"%rcx", "%rdx", "%r8", "%r9"},
		CalleeSaved:    []string{"%rbx", "%rbp", "%rdi", "%rsi", "%r12", "%r13", "%r14", "%r15"},
		ShadowSpace:    32,
		HasRedZone:     false,
		VarargALNeeded: true,
		StackAlignment: 16,
		ReturnRegister: "%rax",
		SymbolPrefix:   "",
		AsmSuffix:      ".s",
		ExeSuffix:      ".exe",
		DataSection:    ".section .data",
		TextSection:    ".section .text",
		LinkCommand:    []string{"gcc", "-m64", "-o", "{exe}", "{asm}", "runtime.o"},
	},
}

// ByName returns the spec for a target name as given on the command line.
func ByName(name string) (Spec, bool) {
	switch strings.ToLower(name) {
	case "linux":
		return specs[Linux], true
	case "macos", "darwin":
		return specs[MacOS], true
	case "windows":
		return specs[Windows], true
	}
	return Spec{}, false
}

// Host maps a GOOS value to the matching spec, defaulting to Linux for
// anything unrecognized.
func Host(goos string) Spec {
	switch goos {
	case "darwin":
		return specs[MacOS]
	case "windows":
		return specs[Windows]
	default:
		return specs[Linux]
	}
}

// Symbol applies the platform's symbol prefix to a linker-visible name.
func (s Spec) Symbol(name string) string {
	return s.SymbolPrefix + name
}

// EntrySymbol is the program entry point the linker expects: _start on
// Linux, main elsewhere (macOS and mingw both route through the C runtime).
func (s Spec) EntrySymbol() string {
	if s.Platform == Linux {
		return "_start"
	}
	return s.Symbol("main")
}

// LinkCommandFor expands the link template for concrete file names.
func (s Spec) LinkCommandFor(exe, asm string) []string {
	out := make([]string, len(s.LinkCommand))
	for i, part := range s.LinkCommand {
		part = strings.ReplaceAll(part, "{exe}", exe)
		part = strings.ReplaceAll(part, "{asm}", asm)
		out[i] = part
	}
	return out
}
