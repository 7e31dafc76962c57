package analyze

import (
	"github.com/spf13/cobra"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/log"
)

func NewProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process capturefile",
		Short: "run the pipeline on a capture and display the lap summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return processCapture(args[0])
		},
	}
	return cmd
}

func processCapture(file string) error {
	logger := log.Default().Named("analyze")
	laps, err := loadLaps(file)
	if err != nil {
		return err
	}
	logger.Info("capture processed",
		log.String("file", file),
		log.Int("laps", len(laps)))
	for _, lap := range laps {
		logger.Info("lap",
			log.Int("number", lap.LapNumber),
			log.Float("lapTime", lap.LapTime),
			log.Float("distance", lap.MaxDistance()),
			log.Int("samples", lap.FrameCount),
			log.Int("telemetryPoints", lap.OriginalTelemetryPoints),
			log.Int("timingPoints", lap.OriginalTimingPoints))
	}
	return nil
}
