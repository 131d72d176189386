// Command linnyr loads a Linny-R model, runs its block schedule to
// the configured horizon and then propagates cost prices: flag
// parsing, an optional interactive REPL, and a verbose mode that wires
// a colorized trace handler. It does not run experiments.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/linnyr-go/linnyr/config"
	"github.com/linnyr-go/linnyr/costprice"
	"github.com/linnyr-go/linnyr/model"
	"github.com/linnyr-go/linnyr/report"
	"github.com/linnyr-go/linnyr/rundb"
	"github.com/linnyr-go/linnyr/schedule"
	"github.com/linnyr-go/linnyr/solver"
	"github.com/linnyr-go/linnyr/trace"
	"github.com/linnyr-go/linnyr/xmlio"
)

func main() {
	var (
		modelPath   string
		configPath  string
		interactive bool
		verbose     bool
		help        bool
	)

	flag.StringVar(&modelPath, "model", "", "path to a Linny-R model XML file")
	flag.StringVar(&configPath, "config", "", "path to a YAML run configuration file")
	flag.BoolVar(&interactive, "i", false, "interactive inspection console after the run")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (colorized run trace)")
	flag.BoolVar(&help, "h", false, "show help")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -model model.xml [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs a Linny-R model's block schedule to its configured horizon.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if help || modelPath == "" {
		flag.Usage()
		if help {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		opts = loaded
	}
	if verbose {
		opts.Verbose = true
	}

	m, err := loadModel(modelPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var collector *trace.Collector
	if opts.Verbose {
		collector = trace.NewCollector(trace.ConsoleHandler())
	} else {
		collector = trace.NewCollector(nil)
	}

	sched := schedule.NewScheduler(m, solver.GreedyBounds{}, opts.BlockLength, opts.LookAhead)
	sched.Tracer = collector
	ctx := context.Background()

	for start := 0; start < opts.Horizon; start += opts.BlockLength {
		if _, runErr := sched.RunBlock(ctx, start); runErr != nil {
			fmt.Fprintln(os.Stderr, "error:", runErr)
			os.Exit(1)
		}
	}

	cpOpts := costprice.DefaultOptions()
	cpOpts.Epsilon = opts.CostPriceEpsilon
	cpResult := costprice.Propagate(m, 0, opts.Horizon, cpOpts)
	collector.Emit(trace.CostPriceDone, map[string]interface{}{"iterations": cpResult.Iterations})

	if opts.RunCachePath != "" {
		if cache, cacheErr := rundb.Open(opts.RunCachePath); cacheErr == nil {
			defer cache.Close()
		}
	}

	if interactive {
		runConsole(m, opts)
	}
}

func loadModel(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return xmlio.Parse(f)
}

// runConsole is a minimal read-eval-print loop for inspecting a
// model's solved vectors after a run.
func runConsole(m *model.Model, opts config.Options) {
	fmt.Println("linnyr interactive console. Commands: process <name>, product <name>, quit")
	formatter := report.NewFormatter()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return
		case "process":
			if len(fields) < 2 {
				continue
			}
			ref, ok := m.Lookup(fields[1])
			if !ok || ref.Kind != model.KindProcess {
				fmt.Println("unknown process:", fields[1])
				continue
			}
			p := m.Process(ref.ID)
			fmt.Print(formatter.FormatVector(p.Name, p.Level, 0, opts.Horizon))
		case "product":
			if len(fields) < 2 {
				continue
			}
			ref, ok := m.Lookup(fields[1])
			if !ok || ref.Kind != model.KindProduct {
				fmt.Println("unknown product:", fields[1])
				continue
			}
			pr := m.Product(ref.ID)
			fmt.Print(formatter.FormatVector(pr.Name, pr.Stock, 0, opts.Horizon))
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
