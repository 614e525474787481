package main

import (
	"github.com/spf13/cobra"

	"github.com/cwbudde/merminwalk/internal/experiment"
	"github.com/cwbudde/merminwalk/internal/opt"
	"github.com/cwbudde/merminwalk/internal/quantum"
)

var groverOut string

var groverCmd = &cobra.Command{
	Use:   "grover <ket>",
	Short: "Follow the Mermin value through Grover's search",
	Long: `Simulates Grover's search for the given ket and writes the Mermin value
of the state after every round as iteration,intricationValue CSV.`,
	Args: cobra.ExactArgs(1),
	RunE: runGrover,
}

func init() {
	d := opt.DefaultRandomWalkConfig()
	addWalkFlags(groverCmd, d.InitialStep, d.MinStep, d.MaxAttempts)
	groverCmd.Flags().StringVar(&groverOut, "out", "", "Output CSV (default grover_<ket>.csv, - for stdout)")
	rootCmd.AddCommand(groverCmd)
}

func runGrover(cmd *cobra.Command, args []string) error {
	target, err := quantum.BasisState(args[0])
	if err != nil {
		return err
	}
	cache, err := appConfig.OpenCache()
	if err != nil {
		return err
	}

	res, err := experiment.Grover(cmd.Context(), target, appConfig.Options(appConfig.Grover, cache))
	if err != nil {
		return err
	}

	out := groverOut
	if out == "" {
		out = "grover_" + res.Target + ".csv"
	}
	return writeOutput(out, res.WriteCSV)
}
