package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"f1replaybot/pkg/report"
)

type inspectOptions struct {
	input    string
	driver   string
	progress float64
	lap      bool
}

func newInspectCmd() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect [year location session]",
		Short: "prints the driver samples at a point of the lap",
		Example: `  f1replay inspect 2023 Monaco Q --progress 0.25
  f1replay inspect 2023 Monaco Q --driver LEC --lap`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.input == "" {
				return cobra.ExactArgs(3)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "",
		"read the payload from this JSON file instead of the backend")
	cmd.Flags().StringVarP(&opts.driver, "driver", "d", "",
		"only show this driver code")
	cmd.Flags().Float64VarP(&opts.progress, "progress", "p", 0,
		"position within the lap in [0,1)")
	cmd.Flags().BoolVar(&opts.lap, "lap", false,
		"summarize the fastest lap of --driver instead")
	return cmd
}

func inspect(ctx context.Context, w io.Writer, args []string, opts inspectOptions) error {
	if opts.lap {
		return inspectLap(ctx, w, args, opts)
	}
	p, err := loadPayload(ctx, args, opts.input, opts.driver)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, report.SampleTable(p, opts.progress))
	return err
}

func inspectLap(ctx context.Context, w io.Writer, args []string, opts inspectOptions) error {
	if opts.input != "" {
		return errors.New("--lap reads from the backend and cannot be combined with --input")
	}
	if opts.driver == "" {
		return errors.New("--lap needs --driver")
	}
	key, err := keyFromArgs(args, opts.driver)
	if err != nil {
		return err
	}
	cl, _, closeFetcher, err := newFetcher()
	if err != nil {
		return err
	}
	defer closeFetcher()
	lap, err := cl.FetchLap(ctx, key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, report.LapSummary(lap))
	return err
}
