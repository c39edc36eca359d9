package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/scenario-search/internal/geometry"
	"github.com/GoSim-25-26J-441/scenario-search/internal/trajectory"
)

func newSeparationCmd() *cobra.Command {
	var a, b, record string
	cmd := &cobra.Command{
		Use:   "separation",
		Short: "Compute the distance between two oriented boxes",
		Long: "Each box is given as x,y,yaw,half_length,half_width with yaw in radians.\n" +
			"With --record the result is appended to a trajectory file as one frame.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ra, err := parseBox(a)
			if err != nil {
				return fmt.Errorf("--a: %w", err)
			}
			rb, err := parseBox(b)
			if err != nil {
				return fmt.Errorf("--b: %w", err)
			}

			var d float64
			var collision bool
			if record != "" {
				rec, err := trajectory.OpenAppend(record)
				if err != nil {
					return err
				}
				defer rec.Close()
				if d, collision, err = rec.RecordSeparation(ra, rb); err != nil {
					return err
				}
			} else {
				d, collision = geometry.Separation(ra, rb)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Separation: %g\n", d)
			fmt.Fprintf(out, "Collision:  %t\n", collision)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&a, "a", "", "first box as x,y,yaw,half_length,half_width (required)")
	f.StringVar(&b, "b", "", "second box as x,y,yaw,half_length,half_width (required)")
	f.StringVar(&record, "record", "", "trajectory file to append the frame to")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

func parseBox(s string) (geometry.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return geometry.Rectangle{}, fmt.Errorf("expected 5 comma-separated values, got %d", len(parts))
	}
	v := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rectangle{}, fmt.Errorf("value %d: %w", i, err)
		}
		v[i] = f
	}
	if v[3] <= 0 || v[4] <= 0 {
		return geometry.Rectangle{}, fmt.Errorf("half lengths must be positive, got %g and %g", v[3], v[4])
	}
	return geometry.Footprint(geometry.Pose{X: v[0], Y: v[1], Yaw: v[2]}, geometry.Extent{X: v[3], Y: v[4]}), nil
}
