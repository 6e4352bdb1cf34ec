// Command molt-verify checks .molt match ledgers offline. It prints one JSON
// report per input and exits 1 when any ledger fails verification.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"claw-colosseum/internal/ledger"
)

const (
	exitValid   = 0
	exitInvalid = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("molt-verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	quiet := fs.Bool("q", false, "print nothing, only set the exit code")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: molt-verify [-q] <file.molt|-> ...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	code := exitValid
	for _, path := range fs.Args() {
		art, err := load(path, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			return exitUsage
		}
		report := ledger.Inspect(art)
		if !report.Valid {
			code = exitInvalid
		}
		if *quiet {
			continue
		}
		if err := enc.Encode(struct {
			File string `json:"file"`
			ledger.Report
		}{File: path, Report: report}); err != nil {
			fmt.Fprintf(stderr, "write report: %v\n", err)
			return exitUsage
		}
	}
	return code
}

func load(path string, stdin io.Reader) (*ledger.Artifact, error) {
	if path == "-" {
		return ledger.DecodeArtifact(stdin)
	}
	return ledger.LoadArtifact(path)
}
