package main

import (
	"flag"
	"strings"
)

// Flags holds the global command-line flags
type Flags struct {
	Config  *string
	Format  *string
	Version *bool
	Help    *bool
}

// ParseFlags parses the global flags; the command and its own flags follow
func ParseFlags() *Flags {
	flags := &Flags{
		Config:  flag.String("config", "", "Path to surveydash.yaml (built-in defaults if empty)"),
		Format:  flag.String("format", "pretty", "Output format: json or pretty"),
		Version: flag.Bool("version", false, "Show version"),
		Help:    flag.Bool("help", false, "Show help"),
	}
	flag.Usage = PrintHelp
	flag.Parse()
	return flags
}

// stringList collects a repeatable string flag
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
