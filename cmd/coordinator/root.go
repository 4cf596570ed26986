package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parallelgt/coordinator/internal/config"
	"github.com/parallelgt/coordinator/internal/coordinator"
	"github.com/parallelgt/coordinator/internal/executor"
	"github.com/parallelgt/coordinator/internal/lifecycle"
	"github.com/parallelgt/coordinator/internal/logging"
	"github.com/parallelgt/coordinator/internal/reconcile"
	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/sender"
	"github.com/parallelgt/coordinator/internal/tmux"
)

// Exit codes per the RPC tool surface's contract.
const (
	exitSuccess       = 0
	exitFailure       = 1
	exitInvalidUsage  = 2
	exitToolUnavailable = 3
)

var (
	configPath string
	debug      bool
	callerFlag string
)

var rootCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Operate the parallel development session coordinator",
	Long: `coordinator manages Master/Child tmux sessions and git worktrees for
parallel development workflows: creating and tearing down sessions,
reporting and querying status, relaying messages, and scheduling
delayed keystroke delivery.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "coordinator.toml", "path to a coordinator.toml tuning file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&callerFlag, "caller-role", "", "override inferred caller role (master|child|external)")
}

// app bundles the constructed core plus the lifecycle of its background
// loops, torn down by every command via its returned cleanup func.
type app struct {
	coordinator *coordinator.Coordinator
	reconciler  *reconcile.Loop
	sender      *sender.Sender
}

// newApp constructs the full core from config, adopts any already-running
// tmux sessions with one synchronous reconciliation pass, and starts the
// background reconciliation and sender loops.
func newApp() (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, debug)
	runner := &executor.Executor{}
	tm := tmux.New(runner)

	reg := registry.New(logger, cfg.MessageQueueCap, cfg.MaxMessageAge.Std())
	lc := lifecycle.New(runner, reg, logger)
	rec := reconcile.New(tm, reg, logger, cfg.TickInterval.Std(), cfg.StaleEvictionTicks)
	breakerCfg := sender.BreakerConfig{
		FailureThreshold: cfg.BreakerFailureThresh,
		SuccessThreshold: cfg.BreakerSuccessThresh,
		Timeout:          cfg.BreakerTimeout.Std(),
		HalfOpenMaxCalls: cfg.BreakerHalfOpenProbes,
	}
	snd := sender.New(tm, logger, cfg.SenderQueueCap, cfg.MaxConcurrentSessions, breakerCfg)

	rec.Tick()
	rec.Start()
	snd.Start()

	coord := coordinator.New(reg, lc, rec, snd, logger)

	cleanup := func() {
		snd.Stop()
		rec.Stop()
	}
	return &app{coordinator: coord, reconciler: rec, sender: snd}, cleanup, nil
}

func callerRole() lifecycle.CallerRole {
	return lifecycle.InferCallerRole(callerFlag)
}

// Execute runs the command tree and returns a process exit code derived
// from any returned coordinator.Error's classification.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitSuccess
	}

	var usageErr *invalidUsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(os.Stderr, err)
		return exitInvalidUsage
	}

	var coordErr *coordinator.Error
	if errors.As(err, &coordErr) {
		fmt.Fprintln(os.Stderr, err)
		switch coordErr.Kind {
		case coordinator.KindInvalidArgument:
			return exitInvalidUsage
		case coordinator.KindExternalFailure:
			return exitToolUnavailable
		default:
			return exitFailure
		}
	}

	fmt.Fprintln(os.Stderr, err)
	return exitFailure
}

// invalidUsageError marks a command-line usage error distinctly from a
// core operation failure, so Execute can map it to exit code 2 even when
// it didn't come from the coordinator facade.
type invalidUsageError struct{ msg string }

func (e *invalidUsageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &invalidUsageError{msg: fmt.Sprintf(format, args...)}
}
