package analyze

import (
	"fmt"
	"strconv"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/analysis/fuel"
)

func NewFuelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuel capturefile lap [lap2]",
		Short: "fuel analysis for one lap or a two lap comparison, JSON on stdout",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fuelAnalysis(cmd, args)
		},
	}
	return cmd
}

func fuelAnalysis(cmd *cobra.Command, args []string) error {
	file := args[0]
	lapNo, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid lap number %q: %w", args[1], err)
	}

	laps, err := loadLaps(file)
	if err != nil {
		return err
	}
	lap, err := findLap(laps, lapNo)
	if err != nil {
		return err
	}

	var result any
	if len(args) == 3 {
		lap2No, convErr := strconv.Atoi(args[2])
		if convErr != nil {
			return fmt.Errorf("invalid lap number %q: %w", args[2], convErr)
		}
		lap2, findErr := findLap(laps, lap2No)
		if findErr != nil {
			return findErr
		}
		result, err = fuel.CompareLaps(lap, lap2)
	} else {
		result, err = fuel.AnalyzeLap(lap)
	}
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
