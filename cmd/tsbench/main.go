package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/hoyle1974/tstore"
	"github.com/hoyle1974/tstore/telemetry"
	flag "github.com/spf13/pflag"
)

var constructors = map[string]func() tstore.Store[string]{
	"dict": func() tstore.Store[string] { return tstore.NewDict[string]() },
	"heap": func() tstore.Store[string] { return tstore.NewHeap[string]() },
	"tree": func() tstore.Store[string] { return tstore.NewTree[string]() },
}

func main() {
	backend := flag.StringP("backend", "b", "all", "Backend to benchmark: dict, heap, tree or all")
	events := flag.IntP("events", "n", 100000, "Number of events to insert")
	queries := flag.IntP("queries", "q", 1000, "Number of range queries to run")
	window := flag.DurationP("window", "w", time.Hour, "Window used for rolling duration queries")
	workers := flag.IntP("workers", "p", 8, "Producer goroutines for the concurrent run")
	seed := flag.Int64P("seed", "s", time.Now().UnixNano(), "Random seed for the generated dataset")
	verbose := flag.BoolP("verbose", "v", false, "Log store activity during the concurrent run")

	flag.Parse()

	names := []string{"dict", "heap", "tree"}
	if *backend != "all" {
		if _, ok := constructors[*backend]; !ok {
			fmt.Printf("unsupported backend: %s\n", *backend)
			os.Exit(2)
		}
		names = []string{*backend}
	}

	var logger telemetry.Logger = telemetry.NOPLogger{}
	if *verbose {
		logger = telemetry.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	now := time.Now().Truncate(time.Second)
	data := generate(rand.New(rand.NewSource(*seed)), now, *events)

	fmt.Printf("Events: %d  Queries: %d  Window: %s  Seed: %d\n", *events, *queries, *window, *seed)
	fmt.Println()
	fmt.Printf("%-6s %12s %14s %14s %12s %12s %12s\n", "store", "insert", "range(avg)", "duration", "earliest", "latest", "remove")

	for _, name := range names {
		r := runSequential(constructors[name](), data, rand.New(rand.NewSource(*seed)), now, *queries, *window)
		fmt.Printf("%-6s %12s %14s %14s %12s %12s %12s\n", name, r.insert, r.rangeAvg, r.duration, r.earliest, r.latest, r.remove)
	}

	fmt.Println()
	fmt.Printf("%-6s %12s %10s %10s %10s\n", "store", "elapsed", "stored", "wakeups", "retries")
	for _, name := range names {
		r, err := runConcurrent(constructors[name](), data, *workers, logger)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%-6s %12s %10d %10d %10d\n", name, r.elapsed, r.stored, r.wakeups, r.retries)
	}
}
