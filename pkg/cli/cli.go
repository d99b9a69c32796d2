// Package cli is the driver's flag layer: long and short flags, typed
// values, and help output shaped to the terminal width.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Option is one registered flag. Bool options take no operand; everything
// else stores the operand through assign.
type Option struct {
	Long    string
	Short   string
	Metavar string
	Help    string
	IsBool  bool

	assign func(string) error
}

// FlagSet holds the registered options and, after Parse, the positional
// arguments. Options keep registration order for help output.
type FlagSet struct {
	name    string
	options []*Option
	args    []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{name: name}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) register(opt *Option) {
	if opt.Long == "" {
		panic("cli: option needs a long name")
	}
	if f.find(opt.Long) != nil || (opt.Short != "" && f.find(opt.Short) != nil) {
		panic("cli: option registered twice: " + opt.Long)
	}
	f.options = append(f.options, opt)
}

// find resolves a long or short spelling to its option.
func (f *FlagSet) find(name string) *Option {
	for _, opt := range f.options {
		if opt.Long == name || (opt.Short != "" && opt.Short == name) {
			return opt
		}
	}
	return nil
}

func (f *FlagSet) String(p *string, long, short, value, help, metavar string) {
	*p = value
	f.register(&Option{
		Long: long, Short: short, Metavar: metavar, Help: help,
		assign: func(s string) error { *p = s; return nil },
	})
}

func (f *FlagSet) Bool(p *bool, long, short string, value bool, help string) {
	*p = value
	f.register(&Option{
		Long: long, Short: short, Help: help, IsBool: true,
		assign: func(s string) error {
			if s == "" {
				*p = true
				return nil
			}
			v, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("option --%s: bad boolean %q", long, s)
			}
			*p = v
			return nil
		},
	})
}

// Parse walks the argument vector. Accepted spellings: --name, --name=v,
// --name v, -s, -s v and the attached -sv. A bare "--" ends option
// processing; everything after it is positional.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]

		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}

		var opt *Option
		var operand string
		var attached bool

		if strings.HasPrefix(arg, "--") {
			name := arg[2:]
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				name, operand, attached = name[:eq], name[eq+1:], true
			}
			if opt = f.find(name); opt == nil || name == "" {
				return fmt.Errorf("%s: unrecognized option --%s", f.name, name)
			}
		} else {
			if opt = f.find(arg[1:2]); opt == nil {
				return fmt.Errorf("%s: unrecognized option -%s", f.name, arg[1:2])
			}
			if rest := arg[2:]; rest != "" {
				operand, attached = rest, true
			}
		}

		if opt.IsBool && !attached {
			if err := opt.assign(""); err != nil {
				return err
			}
			continue
		}
		if !attached {
			i++
			if i >= len(arguments) {
				return fmt.Errorf("%s: option --%s wants a value", f.name, opt.Long)
			}
			operand = arguments[i]
		}
		if err := opt.assign(operand); err != nil {
			return err
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	FlagSet     *FlagSet
	Action      func(args []string) error

	showHelp bool
}

func NewApp(name string) *App {
	app := &App{Name: name, FlagSet: NewFlagSet(name)}
	app.FlagSet.Bool(&app.showHelp, "help", "h", false, "Show this help message and exit.")
	return app
}

// Run parses the arguments and invokes the action. Errors and help both
// short-circuit with the right exit behavior left to the caller.
func (a *App) Run(arguments []string) error {
	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.PrintHelp(os.Stderr)
		return err
	}
	if a.showHelp {
		a.PrintHelp(os.Stdout)
		return nil
	}
	if a.Action == nil {
		return nil
	}
	return a.Action(a.FlagSet.Args())
}

// terminalWidth reports the stdout width, defaulting to 80 columns when
// not a terminal.
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	return 80
}

// PrintHelp renders the synopsis and the flag table in registration order,
// wrapping help text to the terminal width.
func (a *App) PrintHelp(out *os.File) {
	width := terminalWidth()

	fmt.Fprintf(out, "Usage: %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		for _, line := range wrap(a.Description, width-2) {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	fmt.Fprintln(out, "\nOptions:")

	for _, opt := range a.FlagSet.options {
		head := "  --" + opt.Long
		if opt.Short != "" {
			head = "  -" + opt.Short + ", --" + opt.Long
		}
		if opt.Metavar != "" {
			head += " <" + opt.Metavar + ">"
		}
		fmt.Fprintln(out, head)
		for _, line := range wrap(opt.Help, width-8) {
			fmt.Fprintf(out, "        %s\n", line)
		}
	}
}

func wrap(text string, width int) []string {
	words := strings.Fields(text)
	var lines []string
	var line string
	for _, w := range words {
		if line == "" {
			line = w
			continue
		}
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
