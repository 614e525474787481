package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/merminwalk/internal/experiment"
	"github.com/cwbudde/merminwalk/internal/quantum"
)

var (
	qftOut    string
	qftShift  int
	qftPeriod int
	qftQubits int
)

var qftCmd = &cobra.Command{
	Use:   "qft [ket]",
	Short: "Follow the Mermin value through the quantum Fourier transform",
	Long: `Applies the quantum Fourier transform gate by gate and writes the optimal
per-qubit Mermin value of every intermediate state as CSV. The input is a
basis ket, or a periodic state chosen with --shift, --period and --qubits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQFT,
}

func init() {
	addWalkFlags(qftCmd, 5, 1e-2, 1000)
	qftCmd.Flags().StringVar(&qftOut, "out", "", "Output CSV (default qft_<input>.csv, - for stdout)")
	qftCmd.Flags().IntVar(&qftShift, "shift", 0, "Offset of the periodic input state")
	qftCmd.Flags().IntVar(&qftPeriod, "period", 0, "Period of the periodic input state")
	qftCmd.Flags().IntVar(&qftQubits, "qubits", 3, "Qubits of the periodic input state")
	rootCmd.AddCommand(qftCmd)
}

// qftInput builds the input state and a label for the output file
func qftInput(args []string) (*quantum.Vector, string, error) {
	if len(args) == 1 {
		if qftPeriod != 0 {
			return nil, "", fmt.Errorf("give either a ket or --period, not both")
		}
		psi, err := quantum.BasisState(args[0])
		return psi, args[0], err
	}
	if qftPeriod == 0 {
		return nil, "", fmt.Errorf("missing input: give a ket or --period")
	}
	psi, err := quantum.PeriodicState(qftShift, qftPeriod, qftQubits)
	return psi, fmt.Sprintf("periodic_%d_%d_%d", qftShift, qftPeriod, qftQubits), err
}

func runQFT(cmd *cobra.Command, args []string) error {
	psi, label, err := qftInput(args)
	if err != nil {
		return err
	}

	res, err := experiment.QFT(cmd.Context(), psi, appConfig.Options(appConfig.QFT, nil))
	if err != nil {
		return err
	}

	out := qftOut
	if out == "" {
		out = "qft_" + label + ".csv"
	}
	return writeOutput(out, res.WriteCSV)
}
