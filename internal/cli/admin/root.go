package admin

import (
	"github.com/cloo-solutions/msassist/internal/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the msassistd command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "msassistd",
		Short:         "MS assistant server and admin CLI",
		Long:          "Serve the MS medical assistant API and manage its database, users and knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(root)
	root.AddCommand(ServeCmd())
	root.AddCommand(MigrateCmd())
	root.AddCommand(UserCmd())
	root.AddCommand(IngestCmd())
	root.AddCommand(KBCmd())
	root.AddCommand(SymptomsCmd())

	return root
}
