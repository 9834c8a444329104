package main

import (
	"fmt"
	"os"
	"time"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options are the persistent flags shared by API commands.
type options struct {
	baseURL string
	tenant  string
	actor   string
	timeout time.Duration
}
