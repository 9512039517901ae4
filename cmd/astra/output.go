package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	colorRed    = "31"
	colorYellow = "33"
	colorBlue   = "34"
)

var stdoutIsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func colorize(code, s string) string {
	if !stdoutIsTTY {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func clearScreen() {
	if !stdoutIsTTY {
		return
	}
	fmt.Print("\033[2J\033[H")
}
