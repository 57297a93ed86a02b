// Command keyrate computes key-rate durations, DV01/IR01/CS01 and
// convexities of cashflow valuations from JSON tasks.
//
//	keyrate duration --input task.json
//	echo '{"curve":{...},"cashflows":[...],"times":[...]}' | keyrate sensitivities
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meenmo/keyrate/cmd/keyrate/internal/task"
	"github.com/meenmo/keyrate/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errTaskFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// app carries flag values and the logger shared by subcommands.
type app struct {
	inputPath  string
	configPath string
	verbose    bool
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "keyrate",
		Short: "Key-rate risk of cashflow valuations by automatic differentiation",
		Long: `keyrate differentiates valuations with respect to every zero rate of a curve
in one pass of forward-mode automatic differentiation.

Each subcommand reads one JSON task object, or an array of tasks, from --input
or stdin and prints the results as JSON. The exit status is 1 if any task fails.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.inputPath, "input", "i", "", "JSON input path (reads stdin if omitted)")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML or TOML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		a.command("duration", "Macaulay, modified, DV01, IR01 or CS01 duration",
			`Computes "measure" (macaulay, modified, dv01, ir01, cs01; default modified)
with "decomposition" parallel (default) or key-rates. IR01 and CS01 need a
"credit_curve" on the same tenors as "curve".`,
			func(r *task.Runner) task.Func { return r.Duration }),
		a.command("convexity", "Parallel convexity or key-rate convexity matrix",
			`Computes the Hessian of the valuation divided by its value, summed for
"decomposition" parallel or as a matrix for key-rates.`,
			func(r *task.Runner) task.Func { return r.Convexity }),
		a.command("sensitivities", "Value, key-rate durations and convexities",
			`Reports value, key-rate durations and key-rate convexities in one pass.
With a "credit_curve" the result is split into base, credit and cross blocks.`,
			func(r *task.Runner) task.Func { return r.Sensitivities }),
		a.command("montecarlo", "Durations of a simulated valuation",
			`Values the task under a Gaussian short-rate model fitted to "curve" with a
fixed seed and differentiates the Monte Carlo estimator pathwise. "monte_carlo"
selects the payoff (cashflows, cap, digital) and overrides simulation settings.`,
			func(r *task.Runner) task.Func { return r.MonteCarlo }),
	)
	return root
}
