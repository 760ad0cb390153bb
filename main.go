// Package main is the entry point for the mutago CLI.
package main

import "mutago.dev/pkg/mutago/cmd"

func main() {
	cmd.Execute()
}
