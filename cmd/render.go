package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"f1replaybot/log"
	"f1replaybot/pkg/config"
	"f1replaybot/pkg/layout"
	"f1replaybot/pkg/render"
	"f1replaybot/pkg/replay"
	"f1replaybot/pkg/telemetry"
)

type renderOptions struct {
	input    string
	output   string
	driver   string
	progress float64
}

func newRenderCmd() *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [year location session]",
		Short: "renders a single replay frame as PNG or the track outline as SVG",
		Long: `Renders the frame at --progress into --output. An output ending in .svg
writes the static track outline instead. Telemetry comes from the backend
unless --input names a saved payload.`,
		Example: `  f1replay render 2023 Bahrain R --progress 0.5 -o bahrain.png
  f1replay render --input payload.json -o track.svg`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.input == "" {
				return cobra.ExactArgs(3)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderFrame(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "",
		"read the payload from this JSON file instead of the backend")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "frame.png",
		"destination file (.png or .svg)")
	cmd.Flags().StringVarP(&opts.driver, "driver", "d", "",
		"only render this driver code")
	cmd.Flags().Float64VarP(&opts.progress, "progress", "p", 0,
		"position within the lap in [0,1)")
	return cmd
}

func renderFrame(ctx context.Context, args []string, opts renderOptions) error {
	p, err := loadPayload(ctx, args, opts.input, opts.driver)
	if err != nil {
		return err
	}
	scene := render.NewScene(p, float64(config.Width), float64(config.Height), config.Padding)

	if strings.EqualFold(filepath.Ext(opts.output), ".svg") {
		style := render.DefaultStyle()
		err = layout.SaveSVG(opts.output, scene.Track, scene.Width, scene.Height, layout.SvgStyle{
			Background: style.Background,
			TrackColor: style.Track,
			TrackWidth: style.TrackWidth,
		})
	} else {
		canvas := render.NewCanvas(config.Width, config.Height)
		drawn := render.NewRenderer(render.DefaultStyle()).DrawFrame(canvas, scene, opts.progress)
		log.Debug("frame drawn", log.Int("markers", drawn))
		err = canvas.SavePNG(opts.output)
	}
	if err != nil {
		return errors.Wrapf(err, "writing %s", opts.output)
	}
	log.Info("frame written",
		log.String("file", opts.output),
		log.String("drivers", strings.Join(p.DriverCodes(), ",")))
	return nil
}

// loadPayload reads the payload from file when set, from the backend
// otherwise, and narrows it to driver.
func loadPayload(ctx context.Context, args []string, file, driver string) (*telemetry.Payload, error) {
	var (
		p   *telemetry.Payload
		err error
	)
	if file != "" {
		if p, err = readPayload(file); err != nil {
			return nil, err
		}
	} else {
		key, err := keyFromArgs(args, driver)
		if err != nil {
			return nil, err
		}
		_, fetcher, closeFetcher, err := newFetcher()
		if err != nil {
			return nil, err
		}
		defer closeFetcher()
		if p, err = fetcher.Fetch(ctx, key); err != nil {
			return nil, err
		}
	}
	if p == nil {
		return nil, replay.ErrNoPayload
	}
	if driver == "" {
		return p, nil
	}
	single, ok := p.Driver(strings.ToUpper(driver))
	if !ok {
		return nil, errors.Errorf("driver %s not in payload (have %s)",
			strings.ToUpper(driver), strings.Join(p.DriverCodes(), ", "))
	}
	return single, nil
}
