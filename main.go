// Package main はアプリケーションのエントリーポイントを提供します。
package main

import (
	"fmt"
	"os"

	"github.com/stsysd/printledger/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
