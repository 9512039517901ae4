package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "chat":
		return runChat(args[2:])
	case "keys":
		return runKeys(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "astra"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s chat\n", name)
	fmt.Fprintf(os.Stderr, "  %s keys [--date YYYY-MM-DD] [--shared]\n", name)
}
