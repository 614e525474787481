package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/merminwalk/internal/measure"
	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
)

var merminCmd = &cobra.Command{
	Use:   "mermin <ket>",
	Short: "Find the Mermin operator for a Grover target",
	Long: `Finds the (a, a') directions maximizing the Mermin value on the state
halfway between the target ket and the uniform superposition. Results are
read from and written to the coefficient cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runMermin,
}

func init() {
	d := opt.DefaultRandomWalkConfig()
	addWalkFlags(merminCmd, d.InitialStep, d.MinStep, d.MaxAttempts)
	rootCmd.AddCommand(merminCmd)
}

func runMermin(cmd *cobra.Command, args []string) error {
	target, err := quantum.BasisState(args[0])
	if err != nil {
		return err
	}
	cache, err := appConfig.OpenCache()
	if err != nil {
		return err
	}

	m := opt.NewRandomWalk(appConfig.Grover, opt.NewSource(appConfig.Seed))
	_, res, err := measure.MerminOperatorFor(target, cache, m, uuid.New().String())
	if err != nil {
		return err
	}

	slog.Info("Mermin operator ready", "ket", args[0], "value", res.Value, "cached", res.Cached, "evaluations", res.Evaluations)
	fmt.Printf("a  = %v\na' = %v\nvalue = %.6f\n", res.Coefficients.A, res.Coefficients.APrime, res.Value)
	return nil
}
