package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "salaryslip",
		Short:        "Salary slip calculations: basic salary, transportation allowance, danger pay",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newCalcCmd())
	return root
}
