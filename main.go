package main

import (
	"fmt"
	"os"

	"github.com/TFMV/ptree/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "ptree: panic: %v\n", r)
			os.Exit(2)
		}
	}()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ptree: %v\n", err)
		os.Exit(1)
	}
}
