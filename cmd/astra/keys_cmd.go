package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/IA683/AstraGPT/internal/domain"
	"github.com/IA683/AstraGPT/internal/usecase"
)

func runKeys(args []string) int {
	fs := flag.NewFlagSet("keys", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dateArg := fs.String("date", "", "calendar date (YYYY-MM-DD), defaults to today")
	shared := fs.Bool("shared", false, "derive the shared digest instead of the four normal ones")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	date := domain.DateOf(time.Now())
	if *dateArg != "" {
		t, err := time.Parse("2006-01-02", *dateArg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse date: %v\n", err)
			return 1
		}
		date = domain.DateOf(t)
	}

	mode := domain.KeyModeNormal
	if *shared {
		mode = domain.KeyModeShared
	}

	set, err := usecase.KeyDeriver{}.Derive(date, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "derive keys: %v\n", err)
		return 1
	}
	for _, digest := range set.Digests {
		fmt.Println(digest)
	}
	return 0
}
