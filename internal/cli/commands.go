package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newIndexCmd groups read-only commands over categorical index files.
func newIndexCmd() *cobra.Command {
	var folder string

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect categorical index files",
	}
	indexCmd.PersistentFlags().StringVarP(&folder, "folder", "f", "", "Index folder (defaults to RAWIMPORT_INDEX_FOLDER or indices)")

	getCmd := &cobra.Command{
		Use:   "get <index> <value>",
		Short: "Print the integer assigned to a value, or -1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := lookupIndex(folder, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes and their counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listIndexes(cmd.OutOrStdout(), folder)
		},
	}

	indexCmd.AddCommand(getCmd, listCmd)
	return indexCmd
}

// newCheckpointCmd prints the last imported id stored in the target.
func newCheckpointCmd() *cobra.Command {
	var configFile string

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Show the last imported id recorded in the target store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			last, err := showCheckpoint(cmd.Context(), configFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), last)
			return nil
		},
	}
	checkpointCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to import config")

	return checkpointCmd
}
