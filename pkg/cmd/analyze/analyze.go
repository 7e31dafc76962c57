// Package analyze bundles commands that run the pipeline on local
// capture files without a database or broker.
package analyze

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/config"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/model"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/storage"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/parse"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/resample"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/telemetry/timeline"
)

var compressed bool

func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "commands to analyze local capture files",
	}
	cmd.PersistentFlags().BoolVar(&compressed, "deflate", false,
		"treat the capture file as zlib compressed")
	cmd.AddCommand(NewProcessCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewFuelCmd())
	return cmd
}

// loadLaps runs the pipeline on a local capture file.
func loadLaps(file string) ([]*model.ResampledLap, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if compressed {
		if raw, err = storage.Inflate(raw); err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", file, err)
		}
	}
	layout, err := parse.LayoutByName(config.ProtocolVersion)
	if err != nil {
		return nil, err
	}
	parser := parse.NewParser(parse.WithLayout(layout))
	return resample.Race(timeline.Build(parser.Parse(raw)))
}

func findLap(laps []*model.ResampledLap, number int) (*model.ResampledLap, error) {
	for _, lap := range laps {
		if lap.LapNumber == number {
			return lap, nil
		}
	}
	return nil, fmt.Errorf("capture has no lap %d", number)
}
