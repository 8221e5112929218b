// Command mapgen generates mapping-table entries from the GitHub OpenAPI
// description (https://github.com/github/rest-api-description).
//
//	mapgen api.github.com.json --stamp 2025-10-01 --base internal/embedded/mapping.yaml -o mapping.yaml
package main

import (
	"fmt"
	"os"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/internal/tools/mapgen"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/mapping"
	"github.com/agentstation/orgsync/pkg/save"
)

type flags struct {
	stamp  string
	base   string
	output string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "mapgen <openapi.json>",
		Short: "Generate mapping-table entries from the GitHub OpenAPI description",
		Long: `Mapgen reads the PATCH, PUT and POST operations of the organization,
repository and team endpoints and emits one read-write entry per JSON
request body property. With --base the entries are merged into an existing
table; entries already in the table are kept unchanged.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.stamp, "stamp", utc.Now().Format("2006-01-02"), "version stamp of the generated table")
	cmd.Flags().StringVar(&f.base, "base", "", "existing mapping table to extend")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func run(cmd *cobra.Command, input string, f flags) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return errors.WrapIO("read", input, err)
	}
	doc, err := mapgen.Parse(data)
	if err != nil {
		return err
	}
	res, err := mapgen.Generate(doc, f.stamp)
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		logging.Debug().Str("kind", string(s.Kind)).Str("key", s.Key).Str("reason", s.Reason).Msg("Property skipped")
	}

	table := res.Table
	if f.base != "" {
		base, err := mapgen.ReadTable(f.base)
		if err != nil {
			return err
		}
		table = mapgen.Merge(base, table)
	}
	if _, err := mapping.New(table); err != nil {
		return err
	}

	out, err := mapping.Marshal(table)
	if err != nil {
		return err
	}
	dest := save.WithWriter(cmd.OutOrStdout())
	if f.output != "" {
		dest = save.WithPath(f.output)
	}
	header := fmt.Sprintf("Generated by mapgen from %s.\nReview before merging into the mapping table.", input)
	path, err := save.Write(out, dest, save.WithHeader(header))
	if err != nil {
		return err
	}
	logging.Info().Int("fields", len(table.Fields)).Int("skipped", len(res.Skipped)).Str("path", path).Msg("Mapping table generated")
	return nil
}
