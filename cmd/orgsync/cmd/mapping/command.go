// Package mapping provides the mapping command.
package mapping

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/cmd/cmdutil"
	"github.com/agentstation/orgsync/internal/cmd/output"
	"github.com/agentstation/orgsync/pkg/state"
)

// NewCommand creates the mapping command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var kinds *[]string
	cmd := &cobra.Command{
		Use:     "mapping",
		GroupID: "management",
		Short:   "List the field mapping table",
		Long: `Mapping lists every configuration key the loaded mapping table knows,
with its capability and the endpoints used to read and write it. Keys that
are missing here are reported as coverage gaps by diff and sync.`,
		Example: `  orgsync mapping
  orgsync mapping --kind repository -o wide
  orgsync mapping --mapping ./mapping.yaml -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmdutil.Format(app)
			if err != nil {
				return err
			}
			reg, err := app.Registry()
			if err != nil {
				return err
			}
			if len(*kinds) > 0 {
				ks, err := cmdutil.ParseKinds(*kinds)
				if err != nil {
					return err
				}
				reg = reg.Filter(func(k state.Kind) bool {
					for _, want := range ks {
						if k == want {
							return true
						}
					}
					return false
				})
			}
			return output.FormatMapping(app.Stdout(), reg, format)
		},
	}
	kinds = cmdutil.AddKindFlag(cmd)
	return cmd
}
