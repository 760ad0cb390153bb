package cmd

import (
	"github.com/spf13/cobra"

	"mutago.dev/pkg/mutago/internal/domain"
)

var listOperatorsFlag bool

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List applicable mutations per operator",
		Long:  listLongDescription,
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindMutatorFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			if listOperatorsFlag {
				return workflow.ListOperators(ctx)
			}

			return workflow.List(ctx, domain.ListArgs{
				LoadArgs:    loadArgs(args),
				MutatorArgs: mutatorArgs(),
			})
		},
	}

	configureMutatorFlags(cmd)
	cmd.Flags().BoolVar(&listOperatorsFlag, "operators", false, "list the mutation operators instead")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
