package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "collect":
		return runCollect(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "run", "process":
		return runProcess(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsradar CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsradar <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  collect   Fetch recent items from configured RSS feeds")
	fmt.Fprintln(os.Stderr, "  run       Run the full pipeline: dedup, fetch articles, extract locations")
	fmt.Fprintln(os.Stderr, "  process   Alias for run")
	fmt.Fprintln(os.Stderr, "  validate  Validate news item JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  serve     Start the results API server")
	fmt.Fprintln(os.Stderr, "  health    Verify embedding, NER and database connectivity")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsradar <command> -h\" for command-specific flags.")
}
