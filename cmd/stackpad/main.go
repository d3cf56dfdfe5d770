package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/moonstack/luastack/lib/sqlitelib"
	"github.com/moonstack/luastack/state"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to stackpad.toml")
		scriptFile  = flag.String("script", "", "Command script to run (one command per line)")
		dsn         = flag.String("db", "", "SQLite data source for the sql library")
		verbose     = flag.Bool("v", false, "Verbose logging (debug level)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	if *verbose || cfg.Log.Level == "debug" {
		logger, err := zap.NewDevelopment()
		if err == nil {
			state.SetLogger(logger)
			sqlitelib.SetLogger(logger)
		}
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *scriptFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: stackpad -script <file> [-db dsn] [-config stackpad.toml]")
		fmt.Fprintln(os.Stderr, "       stackpad -i  (interactive mode)")
		os.Exit(1)
	}

	if err := runScript(cfg, *scriptFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runScript evaluates the command file line by line and prints the final
// stack.
func runScript(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	for i, line := range strings.Split(string(data), "\n") {
		out, err := s.eval(line)
		if err != nil {
			return fmt.Errorf("line %d (%s): %w", i+1, strings.TrimSpace(line), err)
		}
		if out != "" {
			fmt.Println(out)
		}
	}
	fmt.Print(s.renderStack())
	return nil
}
