package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Horizon-NTH/gwatch/internal/gwatch"
)

const longDesc = `gwatch attaches to a target executable as a debugger and watches one
variable's memory for reads and writes, using a hardware data breakpoint
instead of polling.

Pass flags to the target program using ` + "`--`" + `, for example:

  gwatch counter ./hello -- --verbose --count 10`

var (
	searchPath string
	invade     bool
	noInvade   bool
	noArm      bool
	logEnabled bool
	configPath string
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if _, ok := err.(*gwatch.ArgumentError); ok {
			return 2
		}
		return exitCodeFromError(err)
	}
	return lastExitCode
}

// lastExitCode carries the target's exit code out of the cobra Run
// callback, which cobra itself does not propagate as a return value.
var lastExitCode int

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gwatch <symbol> <exe> [-- target-args...]",
		Short:         "Watch a variable's memory accesses in a child process.",
		Long:          longDesc,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}

	cmd.Flags().StringVar(&searchPath, "search-path", "", "DbgHelp symbol search path.")
	cmd.Flags().BoolVar(&invade, "invade", false, "Let DbgHelp index the entire target process instead of just the watched symbol's module.")
	cmd.Flags().BoolVar(&noInvade, "no-invade", false, "Explicitly disable --invade (overrides a config file's setting).")
	cmd.Flags().BoolVar(&noArm, "no-arm", false, "Test-only: skip programming hardware breakpoints, still read and log the watched value.")
	cmd.Flags().BoolVar(&logEnabled, "log", false, "Enable diagnostic logging to standard error.")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file overriding the built-in defaults.")

	return cmd
}

func runE(cmd *cobra.Command, args []string) error {
	symbol := args[0]
	exePath := args[1]
	targetArgs := args[2:]

	path := configPath
	if path == "" {
		path = "gwatch.yaml"
	}
	fileCfg, err := gwatch.LoadConfig(path)
	if err != nil {
		return gwatch.NewArgumentError(fmt.Sprintf("failed to load config %q: %v", path, err))
	}

	override := gwatch.Config{SearchPath: searchPath}
	if cmd.Flags().Changed("invade") || cmd.Flags().Changed("no-invade") {
		v := invade && !noInvade
		override.Invade = &v
	}
	if cmd.Flags().Changed("no-arm") {
		v := noArm
		override.NoArm = &v
	}
	if cmd.Flags().Changed("log") {
		v := logEnabled
		override.Log = &v
	}

	cfg := gwatch.DefaultConfig().Merge(fileCfg).Merge(override)

	gwatch.Setup(cfg.Log != nil && *cfg.Log)
	configureOutput()

	req := gwatch.RunRequest{
		Symbol: symbol,
		Launch: gwatch.LaunchConfig{
			ExePath: exePath,
			Args:    targetArgs,
		},
		Config: cfg,
		Logger: gwatch.NewStdAccessLogger(os.Stdout),
	}

	code, err := gwatch.Run(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		lastExitCode = 1
		return nil
	}

	lastExitCode = int(code)
	return nil
}

// configureOutput wires logrus' default logger to a colorable writer on
// Windows consoles that support ANSI, the same way pkg/terminal picks a
// writer depending on isatty, grounded on out_windows.go's paging writer.
func configureOutput() {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		logrus.SetOutput(colorable.NewColorableStderr())
	} else {
		logrus.SetOutput(os.Stderr)
	}
}

func exitCodeFromError(err error) int {
	if _, ok := err.(*gwatch.ArgumentError); ok {
		return 2
	}
	fmt.Fprintln(os.Stderr, err)
	return 2
}
