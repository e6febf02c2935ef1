package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/aily-project/aily-builder/internal/driver"
	"github.com/aily-project/aily-builder/internal/logger"
	"github.com/aily-project/aily-builder/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCompileCommand() *cobra.Command {
	var (
		fqbn         string
		sdkPath      string
		libraryPaths []string
		buildPath    string
		overrides    []string
		watchMode    bool
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "compile <sketch>",
		Short: "Resolve a board configuration and build a sketch.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := driver.Request{
				SketchPath:   args[0],
				FQBN:         fqbn,
				SDKPath:      sdkPath,
				LibraryPaths: libraryPaths,
				BuildPath:    buildPath,
				Overrides:    parseOverrides(overrides),
				Parallelism:  viper.GetInt("build.parallelism"),
				Verbose:      verbose,
				Logger:       logr,
				CacheRoot:    viper.GetString("build.cache_root"),
				DisableCache: viper.GetBool("build.disable_cache"),
				ShowProgress: showProgress,
			}

			if watchMode {
				return runWatch(req, append([]string{args[0]}, libraryPaths...))
			}
			return runOnce(req)
		},
	}

	cmd.Flags().StringVar(&fqbn, "fqbn", "", "Fully qualified board name, e.g. arduino:avr:uno (required).")
	cmd.Flags().StringVar(&sdkPath, "sdk-path", "", "Platform install root (default: search DefaultSDKPaths).")
	cmd.Flags().StringSliceVar(&libraryPaths, "library", nil, "Extra library search path (repeatable).")
	cmd.Flags().StringVar(&buildPath, "build-path", "", "Build directory (default: <sketchDir>/build).")
	cmd.Flags().StringSliceVar(&overrides, "override", nil, "key=value build-property override (repeatable).")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Recompile whenever the sketch or a library directory changes.")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar while the build graph executes.")
	cmd.MarkFlagRequired("fqbn")

	return cmd
}

func parseOverrides(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		out[k] = v
	}
	return out
}

func runOnce(req driver.Request) error {
	res, err := driver.Compile(req)
	if err != nil {
		return err
	}
	printResult(res)
	if !res.Success {
		return fmt.Errorf("compile failed")
	}
	return nil
}

func runWatch(req driver.Request, locations []string) error {
	stop := make(chan struct{})
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		close(stop)
	}()

	events, err := watch.Run(req, locations, stop)
	if err != nil {
		return err
	}
	for ev := range events {
		if ev.Err != nil {
			logr.Println(logger.LevelError, "watch: %v", ev.Err)
			continue
		}
		printResult(ev.Result)
	}
	return nil
}

func printResult(res *driver.Result) {
	if res == nil {
		return
	}
	status := "OK"
	if !res.Success {
		status = "FAILED"
	}
	fmt.Printf("compile %s: out=%s preprocess=%s build=%s total=%s\n",
		status, res.OutFilePath, res.PreprocessTime, res.BuildTime, res.TotalTime)
	for name, size := range res.Sections {
		fmt.Printf("  %s: %d bytes\n", name, size)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
