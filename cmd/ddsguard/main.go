// ddsguard evaluates due-diligence statements and supply chains against a
// set of risk indicators and keeps an audit trail of every decision.
//
// Usage:
//
//	# Evaluate a document; exits 2 when it is not compliant
//	ddsguard evaluate --input statement.json --now 2025-03-01
//
//	# Check a risk indicator file
//	ddsguard indicators validate indicators.yaml
//
//	# Query and prune the evidence store
//	ddsguard evidence query --decision reject --format csv
//	ddsguard evidence prune
//
//	# Serve the HTTP API
//	ddsguard serve --config config.yaml
package main

import (
	"fmt"
	"io"
	"os"

	"mercator-hq/ddsguard/pkg/cli"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil && !cli.Silent(err) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}
