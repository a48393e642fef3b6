/*
Package main is the entry point for the apiscout CLI.

apiscout loads an OpenAPI 3 or Swagger 2.0 document, resolves its internal
references and answers "which endpoint do I need?" with ranked, grouped
results and ready-to-run code samples.

Usage:

	apiscout [command]

Available Commands:

	serve    Serve the REST API behind the interactive endpoint browser
	mcp      Expose the documentation search tool to agents over MCP (stdio)
	search   Search a document from the terminal
	inspect  Summarize a document and optionally validate it
	init     Scaffold a sample configuration file
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/apiscout/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
