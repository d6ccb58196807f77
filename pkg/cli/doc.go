/*
Package cli holds the helpers shared by the ddsguard commands: exit codes,
output formatting and signal handling.

Exit codes:

	0  the command succeeded, or the evaluated document is compliant
	1  usage, configuration or I/O error
	2  the evaluated document is not compliant

Commands return NonCompliant() to exit with 2 without printing an error.
*/
package cli
