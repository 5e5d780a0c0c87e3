// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package main provides the command-line interface of stattest.
// The judge command scores texts with the configured judge model and aggregates
// the scores with the same runner used by statistical tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/term"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petmal/stattest/config"
	"github.com/petmal/stattest/fixtures"
	"github.com/petmal/stattest/formatters"
	"github.com/petmal/stattest/judges"
	"github.com/petmal/stattest/pkg/logging"
	"github.com/petmal/stattest/runners"
	"github.com/petmal/stattest/version"
)

const (
	exitCodeBadCommand    = 2
	exitCodeFailedVerdict = 3
	judgeRunnerName       = "judge"
	textArgName           = "text"
)

var reportFormatters = map[string]formatters.Formatter{
	"summary": formatters.NewSummaryLogFormatter(),
	"log":     formatters.NewLogFormatter(),
	"csv":     formatters.NewCSVFormatter(),
}

var (
	passedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

type judgeOptions struct {
	configFile  string
	envFiles    []string
	criterion   string
	groundTruth string
	template    string
	threshold   float64
	runs        int
	shouldFail  bool
	format      string
	output      string
	logFile     string
	verbose     bool
	debug       bool
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	var aggregate *runners.AggregateError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &aggregate):
		return exitCodeFailedVerdict
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCodeBadCommand
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           version.Name,
		Short:         "Statistical testing of nondeterministic outputs",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newJudgeCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}

func newJudgeCommand() *cobra.Command {
	opts := &judgeOptions{}
	cmd := &cobra.Command{
		Use:   "judge [text...]",
		Short: "Score texts with the judge model and aggregate the scores",
		Long: `Score every given text with the judge model and aggregate the scores into a verdict.
A single text is scored --runs times (5 by default); several texts are scored once each.
Without arguments the text is read from standard input.`,
		Example: `
# Score a text against a criterion five times
stattest judge --criterion "Mentions more than 1 apple" "I have 5 apples"

# Compare several samples with a ground truth and save a CSV report
stattest judge --ground-truth "I have some coal" --format csv --output results "I have coal" "Coal, I have"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJudge(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "configuration file path; blank = read the environment")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "environment files to load before reading the environment (default .env)")
	flags.StringVar(&opts.criterion, "criterion", "", "criterion the text should meet")
	flags.StringVar(&opts.groundTruth, "ground-truth", "", "ground truth the text should match")
	flags.StringVar(&opts.template, "template", "", "custom prompt template; may refer to {{.Criterion}} and {{.GroundTruth}}")
	flags.Float64Var(&opts.threshold, "threshold", runners.DefaultThreshold, "success threshold")
	flags.IntVar(&opts.runs, "runs", 0, "number of times a single text is scored (default 5)")
	flags.BoolVar(&opts.shouldFail, "should-fail", false, "expect the aggregate score to stay below the threshold")
	flags.StringVar(&opts.format, "format", "summary", "report format: "+strings.Join(formatNames(), ", "))
	flags.StringVar(&opts.output, "output", "", "base filename for the report; replace if exists; blank = stdout")
	flags.StringVar(&opts.logFile, "log", "", "log file path; append if exists; overrides the configured log file")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable detailed logging")
	flags.BoolVar(&opts.debug, "debug", false, "enable low-level debug logging")
	return cmd
}

func runJudge(cmd *cobra.Command, opts *judgeOptions, texts []string) error {
	ctx := cmd.Context()
	formatter, ok := reportFormatters[opts.format]
	if !ok {
		return fmt.Errorf("unknown report format %q; expected one of: %s", opts.format, strings.Join(formatNames(), ", "))
	}

	if len(texts) == 0 {
		input, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read text from standard input: %w", err)
		}
		if !config.IsNotBlank(string(input)) {
			return errors.New("no text to judge")
		}
		texts = []string{strings.TrimSpace(string(input))}
	}

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	// Time to be used to resolve name patterns.
	timeRef := time.Now()

	logger, closeLog, err := newLogger(cmd.ErrOrStderr(), opts, cfg.LogFile, timeRef)
	if err != nil {
		return err
	}
	defer closeLog()

	samples, err := resolveSamples(ctx, texts, opts.runs, logger)
	if err != nil {
		return err
	}

	factory := judges.NewFactory(cfg.Judge, judges.WithLogger(logger))
	defer func() {
		if err := factory.Close(ctx); err != nil {
			logger.Error(ctx, logging.LevelWarn, err, "failed to close the judge")
		}
	}()

	recorder := runners.NewRecorder()
	runner, err := runners.NewRunner(
		runners.WithThreshold(opts.threshold),
		runners.WithShouldFail(opts.shouldFail),
		runners.WithName(judgeRunnerName),
		runners.WithLogger(logger),
		runners.WithRecorder(recorder),
	)
	if err != nil {
		return err
	}

	selectors := []judges.Option{
		judges.Criterion(opts.criterion),
		judges.GroundTruth(opts.groundTruth),
		judges.Template(opts.template),
	}
	verdict, evalErr := runner.Evaluate(ctx, func(r *runners.R) (runners.Result, error) {
		return runners.From(factory.Evaluate(r.Context(), runners.GetAs[string](r, textArgName), selectors...))
	}, runners.Named(textArgName, samples))

	var aggregate *runners.AggregateError
	if evalErr != nil && !errors.As(evalErr, &aggregate) {
		return evalErr
	}

	out := cmd.OutOrStdout()
	printVerdict(out, verdict, isTerminal(out))
	if err := writeReport(formatter, recorder.Records(), out, opts.output, timeRef); err != nil {
		return err
	}
	return evalErr
}

func loadConfig(ctx context.Context, opts *judgeOptions) (*config.Config, error) {
	if config.IsNotBlank(opts.configFile) {
		return config.LoadConfigFromFile(ctx, filepath.Clean(opts.configFile))
	}
	return config.LoadConfigFromEnv(ctx, opts.envFiles...)
}

// resolveSamples returns the texts to score, one per run.
// A single text is repeated; several texts are scored once each.
func resolveSamples(ctx context.Context, texts []string, runs int, logger logging.Logger) ([]string, error) {
	if len(texts) > 1 {
		if runs != 0 && runs != len(texts) {
			return nil, fmt.Errorf("--runs (%d) must match the number of texts (%d)", runs, len(texts))
		}
		return texts, nil
	}

	fixtureOpts := []fixtures.Option{fixtures.WithName(textArgName), fixtures.WithLogger(logger)}
	if runs != 0 {
		fixtureOpts = append(fixtureOpts, fixtures.WithRepeat(runs))
	}
	text := texts[0]
	fixture, err := fixtures.New(fixtures.Func(func() string { return text }), fixtureOpts...)
	if err != nil {
		return nil, err
	}
	return fixture.Resolve(ctx)
}

func newLogger(stderr io.Writer, opts *judgeOptions, configuredLogFile string, timeRef time.Time) (logging.Logger, func(), error) {
	logWriters := []io.Writer{zerolog.NewConsoleWriter(
		func(w *zerolog.ConsoleWriter) {
			w.Out = stderr
			w.TimeFormat = time.DateTime
			w.NoColor = !isTerminal(stderr)
		},
	)}

	closeLog := func() {}
	logPath := opts.logFile
	if !config.IsNotBlank(logPath) {
		logPath = configuredLogFile
	}
	if fp, err := createOutputFile(logPath, timeRef, true); err != nil {
		return nil, closeLog, err
	} else if fp != nil {
		closeLog = func() { fp.Close() }
		logWriters = append(logWriters, zerolog.NewConsoleWriter(
			func(w *zerolog.ConsoleWriter) {
				w.Out = fp
				w.TimeFormat = time.DateTime
				w.NoColor = true
			},
		)) // format the file output as plain-text without color codes
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(logWriters...)).Level(enabledLogLevel(opts)).With().Timestamp().Logger()
	return logging.NewZerologLogger(logger), closeLog, nil
}

func enabledLogLevel(opts *judgeOptions) zerolog.Level {
	if opts.debug {
		return zerolog.TraceLevel
	} else if opts.verbose {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

func printVerdict(out io.Writer, verdict runners.Verdict, styled bool) {
	status, style := formatters.Passed, passedStyle
	if !verdict.Passed() {
		status, style = formatters.Failed, failedStyle
	}
	status = strings.ToUpper(status)
	if styled {
		status = style.Render(status)
	}
	fmt.Fprintf(out, "%s: score %.2f (required: %s), success rate %d/%d\n",
		status, verdict.AchievedScore, formatters.Requirement(verdict), verdict.Successes, verdict.Runs())
	if verdict.Reason != "" {
		fmt.Fprintf(out, "Reason: %s\n", verdict.Reason)
	}
	fmt.Fprintln(out)
}

func writeReport(formatter formatters.Formatter, records []runners.Record, stdout io.Writer, basename string, timeRef time.Time) error {
	if !config.IsNotBlank(basename) {
		return formatter.Write(records, stdout)
	}
	fp, err := createOutputFile(fmt.Sprintf("%s.%s", basename, formatter.FileExt()), timeRef, false)
	if err != nil {
		return err
	}
	defer fp.Close()
	fmt.Fprintf(stdout, "Report in %s format saved to: %s\n", strings.ToUpper(formatter.FileExt()), fp.Name())
	return formatter.Write(records, fp)
}

func createOutputFile(outputFilePath string, timeRef time.Time, appendMode bool) (outputFile *os.File, err error) {
	if !config.IsNotBlank(outputFilePath) {
		return
	}
	outputPath := filepath.Clean(config.ResolveFileNamePattern(outputFilePath, timeRef))
	if err = os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return
	}
	if appendMode {
		return os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}
	return os.Create(outputPath)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func formatNames() []string {
	names := make([]string, 0, len(reportFormatters))
	for name := range reportFormatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
