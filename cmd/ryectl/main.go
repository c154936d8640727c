// Command ryectl is the CLI entry point for the trust and resolution engine.
package main

import "github.com/ryeos/ryekernel/internal/cli"

func main() {
	cli.Execute()
}
