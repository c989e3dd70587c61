// Package app implements the datalab command line: CSV in, statistics,
// transforms and model results out.
package app

import (
	"context"

	"github.com/YuminosukeSato/datalab/internal/config"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/spf13/cobra"
)

// options is the state shared by every subcommand of one invocation.
type options struct {
	cfgFile  string
	logLevel string
	output   string

	cfg    *config.Config
	logger log.Logger
}

// NewRootCmd builds the datalab command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "datalab",
		Short: "In-memory tabular analysis and lightweight ML experiments",
		Long: `datalab loads a CSV file with a header row and runs descriptive
statistics, Pearson correlation, preprocessing transforms and small
machine-learning experiments against it.

Examples:
  # Summarize every numeric column
  datalab describe data.csv

  # Fill missing ages with the median and write the result
  datalab preprocess data.csv --column age --method fill_median --out clean.csv

  # Train a random forest and predict one row
  datalab train data.csv --algorithm random_forest --target price \
      --features rooms,area --predict 3,72.5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "config file (default: ./datalab.yaml or ~/.datalab/config.yaml)")
	pf.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	pf.StringVarP(&o.output, "output", "o", "", "text or json (overrides config)")

	root.SuggestionsMinimumDistance = 2

	root.AddCommand(
		newDescribeCmd(o),
		newCorrelateCmd(o),
		newPreprocessCmd(o),
		newFilterCmd(o),
		newSortCmd(o),
		newFreqCmd(o),
		newChartCmd(o),
		newTrainCmd(o),
		newWatchCmd(o),
		newConfigCmd(o),
	)
	return root
}

// Execute runs the command tree with ctx; cancelling ctx stops long-running
// commands such as train and watch.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.output != "" {
		cfg.Output = o.output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = log.GetLoggerWithName("cli").With(log.OperationKey, cmd.Name())
	return nil
}
