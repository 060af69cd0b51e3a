package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // CRON_TZ schedules on hosts without zoneinfo
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
