// Command dimcalc runs a dimcalc source file: it parses, type-checks,
// compiles, and executes every statement in order, printing the result of
// each expression statement. A minimal main calling straight into the
// library, extended with the flag-based options a file-driven CLI needs
// (see SPEC_FULL.md's Configuration supplement).
package main

import (
	"flag"
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/hashicorp/go-multierror"

	"github.com/gurre/dimcalc/internal/compiler"
	"github.com/gurre/dimcalc/internal/dimension"
	"github.com/gurre/dimcalc/internal/ffi"
	"github.com/gurre/dimcalc/internal/fmtunit"
	"github.com/gurre/dimcalc/internal/obslog"
	"github.com/gurre/dimcalc/internal/parser"
	"github.com/gurre/dimcalc/internal/prelude"
	"github.com/gurre/dimcalc/internal/typecheck"
	"github.com/gurre/dimcalc/internal/unitreg"
	"github.com/gurre/dimcalc/internal/vm"
)

func main() {
	mainFn := flag.String("main", "", "run the named function chunk instead of the file's top-level statements")
	dumpAST := flag.Bool("ast", false, "print the parsed program instead of running it")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dimcalc [-main name] [-ast] <file>")
		os.Exit(2)
	}

	logger := obslog.New(obslog.Config{Service: "dimcalc", Version: "dev"})

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Log("err", err)
		os.Exit(1)
	}

	if err := run(string(src), *mainFn, *dumpAST, logger); err != nil {
		logger.Log("err", err)
		os.Exit(1)
	}
}

func run(source, mainFn string, dumpAST bool, logger kitlog.Logger) error {
	p, err := parser.New(source)
	if err != nil {
		return fmt.Errorf("dimcalc: parse: %w", err)
	}
	stmts, err := p.ParseProgram()
	if err != nil {
		return fmt.Errorf("dimcalc: parse: %w", err)
	}

	if dumpAST {
		for _, s := range stmts {
			fmt.Println(s.String())
		}
		return nil
	}

	printSink := obslog.PrintSink(logger)

	dimReg := dimension.NewRegistry()
	unitReg := unitreg.NewRegistry()
	ffiTable := ffi.NewTable(printSink)
	checker := typecheck.NewChecker(dimReg, unitReg, ffiTable)
	if err := prelude.Bootstrap(checker); err != nil {
		return fmt.Errorf("dimcalc: prelude: %w", err)
	}

	// Whole-file pre-flight check: every statement is checked before any
	// is run, aggregating every error found instead of stopping at the
	// first (see SPEC_FULL.md §7's error-handling supplement).
	var checkErr error
	for _, s := range stmts {
		if err := checker.CheckStatement(s); err != nil {
			checkErr = multierror.Append(checkErr, err)
		}
	}
	if checkErr != nil {
		return fmt.Errorf("dimcalc: %w", checkErr)
	}

	comp := compiler.New(checker, ffiTable)
	prog, err := comp.Compile(stmts)
	if err != nil {
		return fmt.Errorf("dimcalc: compile: %w", err)
	}

	machine := vm.New(prog, unitReg, ffiTable, printSink)

	if mainFn != "" {
		res, err := machine.CallFunction(mainFn, nil)
		if err != nil {
			return fmt.Errorf("dimcalc: run %s: %w", mainFn, err)
		}
		printResult(unitReg, res)
		return nil
	}

	results, err := machine.Run()
	for _, res := range results {
		printResult(unitReg, res)
	}
	if err != nil {
		return fmt.Errorf("dimcalc: run: %w", err)
	}
	return nil
}

func printResult(reg *unitreg.Registry, res vm.Result) {
	if !res.HasValue {
		return
	}
	fmt.Println(fmtunit.FormatQuantity(reg, res.Quantity))
}
