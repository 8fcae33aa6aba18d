// Package main runs closed-loop simulations of the path-tracking MPC and
// reports how well the vehicle held the route.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/veldrive/pathmpc/canbus"
	"github.com/veldrive/pathmpc/mpc"
	"github.com/veldrive/pathmpc/nlp"
	"github.com/veldrive/pathmpc/sim"
)

const (
	flagConfig    = "config"
	flagScenario  = "scenario"
	flagCSV       = "csv"
	flagCAN       = "can"
	flagHistogram = "histogram"
	flagDebug     = "debug"
)

func main() {
	utils.ContextualMain(mainWithArgs, golog.NewDevelopmentLogger("pathmpc-sim"))
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	app := &cli.App{
		Name:  "pathmpc-sim",
		Usage: "drive a simulated vehicle along a polynomial route with the MPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load controller tuning from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagScenario,
				Aliases: []string{"s"},
				Usage:   "load the scenario from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagCSV,
				Usage: "write the per-cycle trace to `FILE`",
			},
			&cli.StringFlag{
				Name:  flagCAN,
				Usage: "transmit drive commands on CAN interface `IFACE`, e.g. vcan0",
			},
			&cli.BoolFlag{
				Name:  flagHistogram,
				Usage: "print a cross-track error histogram after the run",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("pathmpc-sim")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return runScenario(ctx, c, logger)
		},
	}
	return app.RunContext(ctx, args)
}

func runScenario(ctx context.Context, c *cli.Context, logger golog.Logger) error {
	cfg := mpc.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = mpc.LoadConfig(path); err != nil {
			return err
		}
	}
	scen := sim.DefaultScenario()
	if path := c.String(flagScenario); path != "" {
		var err error
		if scen, err = sim.LoadScenario(path); err != nil {
			return err
		}
	}

	minimizer, err := nlp.NewSLSQP(logger)
	if err != nil {
		return err
	}
	ctrl, err := mpc.NewController(cfg, minimizer, logger)
	if err != nil {
		return err
	}

	params := sim.RunnerParams{Scenario: scen, Controller: ctrl, Logger: logger}
	if iface := c.String(flagCAN); iface != "" {
		tx, err := canbus.NewTransmitter(ctx, iface)
		if err != nil {
			return err
		}
		defer utils.UncheckedErrorFunc(tx.Close)
		var counter uint8
		params.OnCycle = func(ctx context.Context, rec sim.Record) error {
			frame := canbus.Encode(rec.Command, counter, rec.Solved)
			counter++
			return tx.Send(ctx, frame)
		}
	}

	runner, err := sim.NewRunner(params)
	if err != nil {
		return err
	}
	trace, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	if path := c.String(flagCSV); path != "" {
		if err := writeCSV(trace, path); err != nil {
			return err
		}
		logger.Infow("trace written", "path", path, "cycles", trace.Len())
	}

	sum, err := trace.Summarize()
	if err != nil {
		return err
	}
	printSummary(c.App.Writer, scen, sum)

	if c.Bool(flagHistogram) {
		fmt.Fprintln(c.App.Writer, "absolute cross-track error (m):")
		return trace.WriteHistogram(c.App.Writer, 10)
	}
	return nil
}

func writeCSV(trace *sim.Trace, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return multierr.Combine(trace.WriteCSV(f), f.Close())
}

func printSummary(w io.Writer, scen sim.Scenario, sum sim.Summary) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Scenario", "Cycles", "Failures", "CTE Mean", "CTE P95", "CTE Max", "Speed Mean", "Solve Mean", "Solve Max"})
	t.AppendRow([]interface{}{
		scen.Name,
		sum.Cycles,
		sum.Failures,
		fmt.Sprintf("%.3f m", sum.MeanAbsCrossTrack),
		fmt.Sprintf("%.3f m", sum.P95AbsCrossTrack),
		fmt.Sprintf("%.3f m", sum.MaxAbsCrossTrack),
		fmt.Sprintf("%.1f m/s", sum.MeanSpeed),
		fmt.Sprintf("%.1f ms", sum.MeanSolveMillis),
		fmt.Sprintf("%.1f ms", sum.MaxSolveMillis),
	})
	fmt.Fprintln(w, t.Render())
}
