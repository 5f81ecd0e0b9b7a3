package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"calcc/pkg/compiler"
	"calcc/pkg/target"
	"calcc/pkg/utils"

	"github.com/alecthomas/repr"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
)

const outputExt = ".z80"

func main() {
	log.SetFlags(0)
	log.SetPrefix("calcc: ")

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "calcc",
		Usage: "compile calculator programs to TI-83 Plus Z80 assembly",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Usage: "target profile `FILE` (YAML); defaults to the built-in TI-83 Plus profile",
			},
			&cli.StringSliceFlag{
				Name:    "define",
				Aliases: []string{"D"},
				Usage:   "predefine a macro as `NAME[=VALUE]`",
			},
			&cli.BoolFlag{
				Name:  "strip-unused",
				Usage: "do not emit functions unreachable from the entry function",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print the compiler stack trace with errors",
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			batchCommand(),
			symbolsCommand(),
			initCommand(),
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "compile one source file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write assembly to `FILE` (\"-\" for stdout); defaults to the input name with " + outputExt,
			},
			&cli.BoolFlag{
				Name:  "dump-ast",
				Usage: "print the declarations before writing assembly",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("build needs exactly one source file", 2)
			}
			in := c.Args().First()

			profile, err := loadProfile(c)
			if err != nil {
				return err
			}
			src, err := readSource(c, in)
			if err != nil {
				return err
			}

			out, err := compiler.New(profile).Compile(src)
			if err != nil {
				report(c, in, src, err)
				return cli.Exit("", 1)
			}

			if c.Bool("dump-ast") {
				repr.Println(out.Program.Decls, repr.Indent("  "), repr.OmitEmpty(true))
			}

			dest := c.String("output")
			if dest == "" {
				dest = utils.DefaultOutputPath(in, outputExt)
			}
			if dest == "-" {
				if _, err := out.WriteTo(os.Stdout); err != nil {
					report(c, in, src, err)
					return cli.Exit("", 1)
				}
				return nil
			}
			if err := writeOutput(dest, out); err != nil {
				report(c, in, src, err)
				return cli.Exit("", 1)
			}
			log.Printf("%s -> %s (%d functions)", in, dest, len(out.Program.Decls))
			return nil
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "compile several independent source files in parallel",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "compile at most `N` files at once (0 means one per CPU)",
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "write outputs into `DIR` instead of next to their sources",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("batch needs at least one source file", 2)
			}
			profile, err := loadProfile(c)
			if err != nil {
				return err
			}

			paths := c.Args().Slice()
			dests, err := batchOutputs(paths, c.String("out-dir"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			sources := make([]compiler.Source, 0, len(paths))
			texts := make(map[string]string, len(paths))
			for _, p := range paths {
				src, err := readSource(c, p)
				if err != nil {
					return err
				}
				texts[p] = src
				sources = append(sources, compiler.Source{Name: p, Text: src})
			}

			failed := 0
			for _, r := range compiler.CompileAll(context.Background(), profile, sources, c.Int("jobs")) {
				if r.Err != nil {
					report(c, r.Name, texts[r.Name], r.Err)
					failed++
					continue
				}
				dest := dests[r.Name]
				if err := writeOutput(dest, r.Output); err != nil {
					report(c, r.Name, texts[r.Name], err)
					failed++
					continue
				}
				log.Printf("%s -> %s", r.Name, dest)
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(paths)), 1)
			}
			return nil
		},
	}
}

// batchOutputs maps every input to its output path. Two inputs that would
// write the same file are an error.
func batchOutputs(paths []string, outDir string) (map[string]string, error) {
	dests := make(map[string]string, len(paths))
	owner := make(map[string]string, len(paths))
	for _, p := range paths {
		dest := utils.DefaultOutputPath(p, outputExt)
		if outDir != "" {
			dest = filepath.Join(outDir, filepath.Base(dest))
		}
		key := filepath.Clean(dest)
		if prev, ok := owner[key]; ok {
			if prev == p {
				return nil, fmt.Errorf("%s is listed more than once", p)
			}
			return nil, fmt.Errorf("%s and %s would both write %s", prev, p, dest)
		}
		owner[key] = p
		dests[p] = dest
	}
	return dests, nil
}

func symbolsCommand() *cli.Command {
	return &cli.Command{
		Name:      "symbols",
		Usage:     "list the functions of a source file and the OS routines it calls",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("symbols needs exactly one source file", 2)
			}
			in := c.Args().First()
			profile, err := loadProfile(c)
			if err != nil {
				return err
			}
			src, err := readSource(c, in)
			if err != nil {
				return err
			}
			out, err := compiler.New(profile).Compile(src)
			if err != nil {
				report(c, in, src, err)
				return cli.Exit("", 1)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Name", "Kind", "Label", "Returns", "Position"})
			for _, d := range out.Program.Decls {
				label := profile.LabelPrefix + d.Name
				if d.Name == profile.Entry {
					label = profile.StartLabel
				}
				table.Append([]string{d.Name, d.Convention.String(), label, d.ReturnType, d.Pos.String()})
			}
			tbl := out.Program.Table
			for _, name := range tbl.Externals() {
				pos, _ := tbl.ExternalPos(name)
				table.Append([]string{name, "external", profile.OSCall + "(" + name + ")", "", pos.String()})
			}
			table.Render()
			return nil
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "write the default target profile for editing",
		ArgsUsage: "[FILE]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing file",
			},
		},
		Action: func(c *cli.Context) error {
			file := c.Args().First()
			if file == "" {
				file = "calcc.yaml"
			}
			if _, err := os.Stat(file); err == nil && !c.Bool("force") {
				return cli.Exit(fmt.Sprintf("%s already exists (use --force to overwrite)", file), 1)
			}
			if err := target.Default().Save(file); err != nil {
				return fmt.Errorf("error creating %s: %w", file, err)
			}
			log.Printf("wrote %s", file)
			return nil
		},
	}
}

// loadProfile returns the profile named by --target, or the default one,
// with command-line overrides applied.
func loadProfile(c *cli.Context) (*target.Profile, error) {
	profile := target.Default()
	if file := c.String("target"); file != "" {
		var err error
		if profile, err = target.Load(file); err != nil {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}
	if c.Bool("strip-unused") {
		profile.StripUnused = true
	}
	return profile, nil
}

// readSource reads and preprocesses a source file.
func readSource(c *cli.Context, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read input file %q: %w", file, err)
	}
	_, dir, err := utils.GetPathInfo(file)
	if err != nil {
		return "", err
	}
	src, err := compiler.Preprocess(string(data), dir, defines(c.StringSlice("define")))
	if err != nil {
		return "", fmt.Errorf("%s: %w", file, err)
	}
	return src, nil
}

// defines turns NAME=VALUE flags into a map. A bare NAME is defined as 1.
func defines(flags []string) map[string]string {
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			value = "1"
		}
		out[strings.TrimSpace(name)] = value
	}
	return out
}

func writeOutput(path string, out *compiler.Output) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return &compiler.EmitError{Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &compiler.EmitError{Err: cerr}
		}
	}()
	_, err = out.WriteTo(f)
	return err
}

// report prints a diagnostic for file to stderr.
func report(c *cli.Context, file, src string, err error) {
	color.New(color.FgRed, color.Bold).Fprint(color.Error, "error: ")
	fmt.Fprintln(color.Error, compiler.Diagnostic(file, src, err))
	if !c.Bool("trace") {
		return
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		tracerr.PrintSourceColor(err)
	} else {
		tracerr.PrintSource(err)
	}
}
