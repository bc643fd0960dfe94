// surveycli runs dashboard queries against the survey dataset from the
// command line, without the HTTP server or the access gate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ruslano69/surveydash/internal/infra"
)

func main() {
	ctx := context.Background()

	flags := ParseFlags()
	if *flags.Version {
		PrintVersion()
		os.Exit(0)
	}
	if *flags.Help || flag.NArg() == 0 {
		PrintHelp()
		os.Exit(0)
	}

	cfg, err := infra.LoadConfig(*flags.Config)
	if err != nil {
		fatal("Failed to load config: %v", err)
	}
	if err := infra.SetupLogging(cfg.Logging, os.Stderr); err != nil {
		fatal("Failed to set up logging: %v", err)
	}

	a := &app{cfg: cfg, out: os.Stdout, format: *flags.Format}
	if err := a.run(ctx, flag.Args()); err != nil {
		fatal("%v", err)
	}
}

// app carries what every command needs
type app struct {
	cfg    *infra.Config
	out    io.Writer
	format string
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given")
	}

	name, rest := args[0], args[1:]
	switch name {
	case "info":
		return a.info(ctx, rest)
	case "options":
		return a.options(ctx, rest)
	case "kpis":
		return a.kpis(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "response":
		return a.response(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "audit":
		return a.auditLog(ctx, rest)
	}
	return fmt.Errorf("unknown command %q (see --help)", name)
}

// print writes v as JSON; "pretty" indents it
func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	switch a.format {
	case "", "pretty":
		enc.SetIndent("", "  ")
	case "json":
	default:
		return fmt.Errorf("unknown output format %q (json/pretty)", a.format)
	}
	return enc.Encode(v)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
