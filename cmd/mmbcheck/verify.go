package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mmbcheck/internal/driver"
	"mmbcheck/internal/trace"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [flags] <file.mmb|directory>...",
	Short: "Verify proof files",
	Long:  `Verify decodes each .mmb file and replays its proofs. Directories are searched recursively for .mmb files.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().Int("jobs", 0, "files verified in parallel (0=auto)")
	verifyCmd.Flags().Bool("unify", false, "check every signature against its unify stream before replaying proofs")
	verifyCmd.Flags().Int("unify-jobs", 1, "workers for the signature check")
	verifyCmd.Flags().Bool("allow-sorry", false, "accept sorry placeholders in proofs")
	verifyCmd.Flags().Bool("no-cache", false, "do not read or write the verdict cache")
	verifyCmd.Flags().Bool("clear-cache", false, "drop all cached verdicts before verifying")
	verifyCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	verifyCmd.Flags().Int("until", -1, "stop before this statement (negative checks everything)")
	verifyCmd.Flags().Bool("timings-json", false, "print per-file timings as JSON lines")
}

func runVerify(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return err
	}
	unify, err := flags.GetBool("unify")
	if err != nil {
		return err
	}
	unifyJobs, err := flags.GetInt("unify-jobs")
	if err != nil {
		return err
	}
	allowSorry, err := flags.GetBool("allow-sorry")
	if err != nil {
		return err
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return err
	}
	clearCache, err := flags.GetBool("clear-cache")
	if err != nil {
		return err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return err
	}
	until, err := flags.GetInt("until")
	if err != nil {
		return err
	}
	timingsJSON, err := flags.GetBool("timings-json")
	if err != nil {
		return err
	}
	root := cmd.Root().PersistentFlags()
	timings, err := root.GetBool("timings")
	if err != nil {
		return err
	}
	quiet, err := root.GetBool("quiet")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	files, err := driver.ExpandPaths(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files found", driver.Ext)
	}

	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	opts := driver.Options{
		Jobs:       jobs,
		UnifyJobs:  unifyJobs,
		Unify:      unify,
		AllowSorry: allowSorry,
		Until:      until,
		Timings:    timings || timingsJSON,
		Tracer:     tracer,
	}
	if !noCache {
		cache, err := driver.OpenDiskCache("mmbcheck")
		if err != nil {
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err) //nolint:errcheck
			}
		} else {
			if clearCache {
				if err := cache.DropAll(); err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
			}
			opts.Cache = cache
		}
	}

	started := time.Now()
	var results []driver.FileResult
	if shouldUseTUI(mode, len(files)) {
		results, err = runVerifyWithUI(ctx, "verifying", files, opts)
	} else {
		results, err = driver.VerifyFiles(ctx, files, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := printResults(out, results, quiet)
	if timings {
		printTimings(out, results, time.Since(started))
	}
	if timingsJSON {
		for i := range results {
			if line := driver.TimingJSON(&results[i]); line != nil {
				fmt.Fprintf(out, "%s\n", line) //nolint:errcheck
			}
		}
	}
	if failed > 0 {
		if ring := ringOf(tracer); ring != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "trace (most recent events):") //nolint:errcheck
			_ = ring.Dump(cmd.ErrOrStderr(), trace.FormatText)
		}
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// printResults writes one line per file and returns the number of
// failures. Quiet mode only reports failures.
func printResults(out io.Writer, results []driver.FileResult, quiet bool) int {
	okLabel := color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	failed := 0
	for i := range results {
		r := &results[i]
		if !r.OK() {
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", failLabel("FAIL"), r.Path, r.Err) //nolint:errcheck
			continue
		}
		if quiet {
			continue
		}
		note := ""
		if r.Cached {
			note = " " + dim("(cached)")
		}
		fmt.Fprintf(out, "%s   %s: %d statements, %s%s\n", okLabel("ok"), r.Path, r.Statements, r.State, note) //nolint:errcheck
	}
	return failed
}

func printTimings(out io.Writer, results []driver.FileResult, total time.Duration) {
	for i := range results {
		r := &results[i]
		if r.Timing == nil {
			continue
		}
		fmt.Fprintf(out, "%s %.1f ms\n", r.Path, r.Timing.TotalMS) //nolint:errcheck
		for _, p := range r.Timing.Phases {
			fmt.Fprintf(out, "  %-8s %.1f ms", p.Name, p.DurationMS) //nolint:errcheck
			if p.Note != "" {
				fmt.Fprintf(out, "  %s", p.Note) //nolint:errcheck
			}
			fmt.Fprintln(out) //nolint:errcheck
		}
	}
	fmt.Fprintf(out, "total %.1f ms\n", toMillis(total)) //nolint:errcheck
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
