package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/metacache/config"
	"github.com/jonwraymond/metacache/metacache"
)

// errDescribeKey is returned when describe gets neither or both lookup keys.
var errDescribeKey = errors.New("exactly one of --business-key and --table is required")

type describeFlags struct {
	businessKey string
	table       string
	column      string
	children    bool
	output      string
}

// NewDescribeCommand creates the describe command
func NewDescribeCommand(flags *globalFlags) *cobra.Command {
	df := &describeFlags{}

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print an object or element descriptor",
		Example: `  metacache describe --business-key object.invoice
  metacache describe --table T_INVOICE --column C_AMOUNT -o json
  metacache describe --business-key object.invoice --children`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (df.businessKey == "") == (df.table == "") {
				return errDescribeKey
			}
			if df.column != "" && df.table == "" {
				return errors.New("--column requires --table")
			}
			if df.output != "yaml" && df.output != "json" {
				return fmt.Errorf("unknown output format %q, want yaml or json", df.output)
			}

			ctx := cmd.Context()
			cfg, err := config.Load(ctx, flags.configPath)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			v, err := describe(cmd, a.cache, df)
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), df.output, v)
		},
	}

	cmd.Flags().StringVar(&df.businessKey, "business-key", "", "object business key")
	cmd.Flags().StringVar(&df.table, "table", "", "object table name")
	cmd.Flags().StringVar(&df.column, "column", "", "print only the element bound to this column")
	cmd.Flags().BoolVar(&df.children, "children", false, "print the object's child summaries")
	cmd.Flags().StringVarP(&df.output, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}

func describe(cmd *cobra.Command, c *metacache.Cache, df *describeFlags) (any, error) {
	ctx := cmd.Context()
	if df.column != "" {
		return c.ElementByColumn(ctx, df.table, df.column)
	}

	d, err := c.ObjectDescriptor(ctx, df.businessKey, df.table)
	if err != nil {
		return nil, err
	}
	if !df.children {
		return d, nil
	}

	children, err := c.Children(ctx, d)
	if err != nil {
		return nil, err
	}
	out := make([]metacache.ChildSummary, 0, len(children))
	for _, child := range children {
		out = append(out, child)
	}
	slices.SortFunc(out, func(a, b metacache.ChildSummary) int {
		return strings.Compare(a.BusinessKey, b.BusinessKey)
	})
	return out, nil
}

func encode(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
