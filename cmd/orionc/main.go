package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orion-lang/orion/pkg/cli"
	"github.com/orion-lang/orion/pkg/compiler"
	"github.com/orion-lang/orion/pkg/config"
	"github.com/orion-lang/orion/pkg/util"
)

const (
	exitOK           = 0
	exitCompileError = 1
	exitIOError      = 2
)

func main() {
	app := cli.NewApp("orionc")
	app.Synopsis = "[options] <input.or>"
	app.Description = "Ahead-of-time compiler for the Orion language, emitting GNU-assembler text for x86-64."

	var (
		outFile   string
		targetStr string
		emitAsm   bool
		noWarn    bool
		fold      bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&targetStr, "target", "t", "", "Target platform: linux, macos or windows (defaults to the host).", "platform")
	fs.Bool(&emitAsm, "emit-asm", "S", false, "Stop after emitting the assembly file.")
	fs.Bool(&noWarn, "no-warnings", "w", false, "Suppress all warnings.")
	fs.Bool(&fold, "fold", "O", false, "Fold constant subexpressions before code generation.")

	cfg := config.NewConfig()

	app.Action = func(inputs []string) error {
		if len(inputs) != 1 {
			fmt.Fprintln(os.Stderr, "orionc: expected exactly one input file")
			os.Exit(exitIOError)
		}
		input := inputs[0]

		if targetStr != "" {
			if err := cfg.SetTarget(targetStr); err != nil {
				fmt.Fprintf(os.Stderr, "orionc: %v\n", err)
				os.Exit(exitIOError)
			}
		}
		if noWarn {
			cfg.SetAllWarnings(false)
		}
		if fold {
			cfg.SetFeature(config.FeatFold, true)
		}

		source, err := os.ReadFile(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "orionc: %v\n", err)
			os.Exit(exitIOError)
		}

		asm, diags := compiler.Compile(source, input, cfg)
		if len(diags) > 0 {
			for _, d := range diags {
				util.Report(d)
			}
			os.Exit(exitCompileError)
		}

		base := strings.TrimSuffix(input, filepath.Ext(input))
		asmFile := base + cfg.Target.AsmSuffix
		if emitAsm && outFile != "" {
			asmFile = outFile
		}
		if err := os.WriteFile(asmFile, []byte(asm), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "orionc: %v\n", err)
			os.Exit(exitIOError)
		}

		if emitAsm {
			return nil
		}

		// Assembling and linking belong to the external toolchain; hand
		// the user the exact command for this target.
		exe := outFile
		if exe == "" {
			exe = base + cfg.Target.ExeSuffix
		}
		link := cfg.Target.LinkCommandFor(exe, asmFile)
		fmt.Fprintf(os.Stderr, "orionc: wrote %s\norionc: link with: %s\n",
			asmFile, strings.Join(link, " "))
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(exitIOError)
	}
	os.Exit(exitOK)
}
