package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/merminwalk/internal/experiment"
)

var sweepOut string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep entanglement invariants over phase estimation or counting states",
	Long: `Computes the selected invariants (cm, mu, gme) of the register state of
quantum phase estimation (Z) or quantum counting (G) for every angle in
[min, max) by step. Angles are evaluated concurrently.`,
	RunE: runSweep,
}

func init() {
	d := experiment.DefaultSweepConfig()
	f := sweepCmd.Flags()
	f.String("algorithm", string(d.Algorithm), "Z (phase estimation) or G (quantum counting)")
	f.Int("first-register", d.FirstRegister, "Qubits of the counting register")
	f.Int("second-register", d.SecondRegister, "Qubits of the eigenstate register (1 or 2)")
	f.Float64("min", d.Min, "First angle")
	f.Float64("max", d.Max, "Sweep stops below this angle")
	f.Float64("step", d.Step, "Angle increment")
	f.StringSlice("invariants", []string{"cm", "mu", "gme"}, "Invariants to compute: cm, mu, gme")
	f.Int("workers", d.Workers, "Concurrent evaluations (0 = GOMAXPROCS)")
	addWalkFlags(sweepCmd, d.Walk.InitialStep, d.Walk.MinStep, d.Walk.MaxAttempts)
	f.StringVar(&sweepOut, "out", "", "Output CSV (default sweep_<algorithm>.csv, - for stdout)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := appConfig.Sweep
	res, err := experiment.Sweep(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	out := sweepOut
	if out == "" {
		out = fmt.Sprintf("sweep_%s.csv", cfg.Algorithm)
	}
	return writeOutput(out, res.WriteCSV)
}
