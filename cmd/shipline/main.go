package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/systemstart/shipline/pkg/logging"
	"github.com/systemstart/shipline/pkg/release"
)

var version = "dev"

const (
	_ = iota
	exitDotenvError
	exitSpecNotSpecified
	exitSpecCheckFailed
	exitEnvironmentNotSpecified
	exitDescribeFailed
	exitRunFailed
	exitBatchFailed
)

// paramFlags collects repeated -set flags as dotted key=value pairs.
type paramFlags map[string]string

func (p paramFlags) String() string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+p[key])
	}
	return strings.Join(pairs, ",")
}

func (p paramFlags) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	p[key] = val
	return nil
}

var (
	specFile       string
	targetsFile    string
	environment    string
	releaseVersion string
	branch         string
	ref            string
	params         = paramFlags{}
	stageTimeout   time.Duration
	printPlan      bool
	loggingType    string
	logLevel       string
	showVersion    bool
)

func init() {
	flag.StringVar(
		&specFile,
		"spec",
		"",
		"service spec file to release")
	flag.StringVar(
		&targetsFile,
		"targets",
		"",
		"targets file for batch mode (replaces -spec and -env)")
	flag.StringVar(
		&environment,
		"env",
		"",
		"target environment declared in the spec")
	flag.StringVar(
		&releaseVersion,
		"version",
		"",
		"release version (semver)")
	flag.StringVar(
		&branch,
		"branch",
		"",
		"source branch, available to config as branch")
	flag.StringVar(
		&ref,
		"ref",
		"",
		"source revision, available to config as ref")
	flag.Var(
		params,
		"set",
		"runtime parameter as dotted key=value (repeatable)")
	flag.DurationVar(
		&stageTimeout,
		"timeout",
		0,
		"default per-stage timeout (0 = built-in default)")
	flag.BoolVar(
		&printPlan,
		"print-plan",
		false,
		"print the stage plan and exit without running")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"show-version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	_ = logging.Initialize(loggingType, logLevel)

	includeEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if targetsFile != "" {
		runBatch(ctx)
		return
	}

	checkSpecFile()
	checkEnvironment()

	if printPlan {
		describePlan()
		return
	}

	runRelease(ctx)
}

func options() release.Options {
	return release.Options{
		SpecFile:     specFile,
		Environment:  environment,
		Version:      releaseVersion,
		Branch:       branch,
		Ref:          ref,
		Params:       params,
		StageTimeout: stageTimeout,
	}
}

func runRelease(ctx context.Context) {
	result, err := release.Run(ctx, options())
	if err != nil {
		slog.Error("release could not run", "error", err)
		os.Exit(exitRunFailed)
	}
	if result.Failed() {
		os.Exit(exitRunFailed)
	}
}

func runBatch(ctx context.Context) {
	err := release.RunBatch(ctx, targetsFile, options())
	if err != nil {
		slog.Error("batch failed", "error", err)
		os.Exit(exitBatchFailed)
	}
	slog.Info("batch done")
}

func describePlan() {
	plans, err := release.Describe(options())
	if err != nil {
		slog.Error("failed to assemble plan", "error", err)
		os.Exit(exitDescribeFailed)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tENABLED\tPOLICY\tTIMEOUT")
	for _, plan := range plans {
		enabled := "no"
		if plan.Enabled {
			enabled = "yes"
		}
		timeout := "default"
		if plan.Timeout > 0 {
			timeout = plan.Timeout.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", plan.Name, enabled, plan.Policy, timeout)
	}
	_ = w.Flush()
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}

func checkSpecFile() {
	if specFile == "" {
		slog.Error("-spec not set")
		os.Exit(exitSpecNotSpecified)
	}

	st, err := os.Stat(specFile)
	if err != nil {
		slog.Error("failed to check spec file", "file", specFile, "error", err)
		os.Exit(exitSpecCheckFailed)
	}

	if st.IsDir() {
		slog.Error("-spec is a directory, not a spec file", "file", specFile)
		os.Exit(exitSpecCheckFailed)
	}
}

func checkEnvironment() {
	if environment == "" {
		slog.Error("-env not set")
		os.Exit(exitEnvironmentNotSpecified)
	}
}
