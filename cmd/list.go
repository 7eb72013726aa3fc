package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v3"

	joraerrors "thoreinstein.com/jora/pkg/errors"
	"thoreinstein.com/jora/pkg/tasks"
	"thoreinstein.com/jora/pkg/ui"
)

// outputFormat is a pflag.Value restricted to the supported list formats.
type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(v string) error {
	switch outputFormat(strings.ToLower(v)) {
	case formatTable, formatJSON, formatYAML:
		*f = outputFormat(strings.ToLower(v))
		return nil
	default:
		return joraerrors.Newf("must be one of table, json, yaml (got %q)", v)
	}
}

func (f *outputFormat) Type() string { return "format" }

var (
	_ pflag.Value = (*outputFormat)(nil)
	_ pflag.Value = (*addressService)(nil)
)

var (
	listRefresh bool
	listOutput  = formatTable
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your assigned tasks ranked by review state",
	Long: `Print the tasks assigned to you, most actionable first.

Tasks with changes requested come first, then tasks whose pull request has
no reviews, then pending reviews and tasks without a pull request. Approved
tasks come last. The list is cached; --refresh forces a refetch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		svc, release, err := a.taskService()
		if err != nil {
			return err
		}
		defer release()

		listing, err := svc.List(ctx, listRefresh)
		if err != nil {
			return err
		}
		return writeListing(a.out, listing, listOutput, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVarP(&listRefresh, "refresh", "r", false, "Ignore the cached list and refetch")
	listCmd.Flags().VarP(&listOutput, "output", "o", "Output format: table, json or yaml")
}

func writeListing(w io.Writer, listing *tasks.Listing, format outputFormat, now time.Time) error {
	ts := listing.Tasks
	if ts == nil {
		ts = []tasks.Task{}
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ts)

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ts); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(ts) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return nil
	}
	if updated := listing.UpdatedAgo(now); updated != "" {
		fmt.Fprintf(w, "📅 %s\n", updated)
	}
	for _, t := range ts {
		fmt.Fprintln(w, ui.FormatTaskRow(t))
	}
	return nil
}
