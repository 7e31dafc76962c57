package analyze

import (
	"fmt"
	"strconv"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/analysis/comparison"
)

func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare capturefile lap1 lap2",
		Short: "compare two laps of a capture, result as JSON on stdout",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareLaps(cmd, args[0], args[1], args[2])
		},
	}
	return cmd
}

func compareLaps(cmd *cobra.Command, file, lap1Arg, lap2Arg string) error {
	lap1No, err := strconv.Atoi(lap1Arg)
	if err != nil {
		return fmt.Errorf("invalid lap number %q: %w", lap1Arg, err)
	}
	lap2No, err := strconv.Atoi(lap2Arg)
	if err != nil {
		return fmt.Errorf("invalid lap number %q: %w", lap2Arg, err)
	}

	laps, err := loadLaps(file)
	if err != nil {
		return err
	}
	lap1, err := findLap(laps, lap1No)
	if err != nil {
		return err
	}
	lap2, err := findLap(laps, lap2No)
	if err != nil {
		return err
	}

	result, err := comparison.Compare(lap1, lap2)
	if err != nil {
		return err
	}
	data, err := oj.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
