package admin

import (
	"fmt"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/symptoms"
	"github.com/spf13/cobra"
)

func SymptomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "Inspect symptom reference tables",
	}

	cmd.AddCommand(SymptomsValidateCmd())

	return cmd
}

func SymptomsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a symptom table file",
		Long:  "Check that a JSON symptom table has the three required lists and well-formed entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := symptoms.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d common, %d less common, %d patterns\n",
				args[0],
				len(table.ByCategory(domain.SymptomCommon)),
				len(table.ByCategory(domain.SymptomLessCommon)),
				len(table.ByCategory(domain.SymptomPattern)))
			return nil
		},
	}
}
