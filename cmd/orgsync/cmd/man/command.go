// Package man provides the hidden man page command.
package man

import (
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/agentstation/orgsync/internal/appcontext"
)

// NewCommand creates the man command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Generate man page",
		Long:   `Generate the orgsync(1) man page in troff format on stdout.`,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := &doc.GenManHeader{
				Title:   "ORGSYNC",
				Section: "1",
				Source:  "orgsync " + app.Version(),
				Manual:  "orgsync Manual",
			}
			return doc.GenMan(cmd.Root(), header, app.Stdout())
		},
	}
}
