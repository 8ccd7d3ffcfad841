package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	natsadapter "github.com/plotperfect/plotmap/internal/adapters/nats"
	"github.com/plotperfect/plotmap/internal/core/alignment"
	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/usecases"
	"github.com/plotperfect/plotmap/internal/pkg/config"
	"github.com/plotperfect/plotmap/internal/pkg/geospatial"
	"github.com/plotperfect/plotmap/internal/pkg/logging"
)

type orderFlags struct {
	flipH bool
	flipV bool
}

func (f *orderFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.flipH, "flip-h", false, "mirror the image horizontally")
	cmd.Flags().BoolVar(&f.flipV, "flip-v", false, "mirror the image vertically")
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "mapctl",
		Short:        "Inspect and transform georeferenced overlay corners",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), "mapctl", logLevel, "text"))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newCanonicalizeCmd(),
		newAdjustCmd(),
		newFootprintCmd(),
		newWatchCmd(),
	)
	return root
}

func newCanonicalizeCmd() *cobra.Command {
	var flags orderFlags
	cmd := &cobra.Command{
		Use:   "canonicalize [CORNERS]",
		Short: "Order four corners as top-left, top-right, bottom-right, bottom-left",
		Long: "Reads four [lng, lat] pairs as a JSON array, from the argument or stdin,\n" +
			"and prints them in role order with any flips applied.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readCorners(cmd, args)
			if err != nil {
				return err
			}
			ordered := alignment.Flip(alignment.Canonicalize(raw), flags.flipH, flags.flipV)
			return writeJSON(cmd.OutOrStdout(), ordered.Slice())
		},
	}
	flags.register(cmd)
	return cmd
}

func newAdjustCmd() *cobra.Command {
	var (
		flags    orderFlags
		scale    float64
		rotation float64
		zoom     float64
	)
	cmd := &cobra.Command{
		Use:   "adjust [CORNERS]",
		Short: "Order corners, then scale and rotate them about their centre",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scale < alignment.MinScale || scale > alignment.MaxScale {
				return fmt.Errorf("--scale must be between %v and %v", alignment.MinScale, alignment.MaxScale)
			}
			if zoom <= 0 || zoom > 24 {
				return fmt.Errorf("--zoom must be in (0, 24]")
			}
			raw, err := readCorners(cmd, args)
			if err != nil {
				return err
			}
			ordered := alignment.Flip(alignment.Canonicalize(raw), flags.flipH, flags.flipV)
			final := alignment.Adjust(ordered, scale, rotation, geospatial.NewWebMercator(zoom))
			return writeJSON(cmd.OutOrStdout(), final.Slice())
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&scale, "scale", 1, "scale factor")
	cmd.Flags().Float64Var(&rotation, "rotation", 0, "rotation in degrees")
	cmd.Flags().Float64Var(&zoom, "zoom", 18, "map zoom the adjustment is made at")
	return cmd
}

func newFootprintCmd() *cobra.Command {
	var (
		flags    orderFlags
		imageRef string
	)
	cmd := &cobra.Command{
		Use:   "footprint [CORNERS]",
		Short: "Print the overlay outline as a GeoJSON Feature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readCorners(cmd, args)
			if err != nil {
				return err
			}
			cfg := &domain.MapConfig{
				ImageRef: imageRef,
				Corners:  alignment.Flip(alignment.Canonicalize(raw), flags.flipH, flags.flipV),
				Opacity:  1,
				FlipH:    flags.flipH,
				FlipV:    flags.flipV,
			}
			data, err := usecases.FootprintOf(cfg).MarshalJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&imageRef, "image", "", "image reference to record on the feature")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var (
		natsURL string
		project string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print map config events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if natsURL == "" {
				cfg, err := config.Load("mapctl")
				if err != nil {
					return err
				}
				natsURL = cfg.NATS.URL
			}

			sub, err := natsadapter.NewSubscriber(natsURL)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			err = sub.SubscribeMapConfigEvents(ctx, project, func(_ context.Context, event *domain.MapConfigEvent) error {
				return writeJSON(out, event)
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			slog.Info("watching map config events", "url", natsURL, "project", project)

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats", "", "NATS URL (defaults to the configured nats.url)")
	cmd.Flags().StringVar(&project, "project", "", "only show events for this project")
	return cmd
}

// readCorners parses a JSON array of four [lng, lat] pairs from the first
// argument, or from stdin when there is no argument or it is "-".
func readCorners(cmd *cobra.Command, args []string) (domain.Corners, error) {
	var data []byte
	if len(args) == 1 && args[0] != "-" {
		data = []byte(args[0])
	} else {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.Corners{}, fmt.Errorf("read stdin: %w", err)
		}
		data = b
	}
	if strings.TrimSpace(string(data)) == "" {
		return domain.Corners{}, fmt.Errorf("no corners given")
	}

	var c domain.Corners
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Corners{}, err
	}
	return c, nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
