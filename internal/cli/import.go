package cli

import (
	"github.com/spf13/cobra"
)

type ImportOptions struct {
	ConfigFile  string
	BatchSize   int
	IndexFolder string
	DryRun      bool
}

func NewImportCmd() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run one import pass defined in the config file",
		RunE: func(c *cobra.Command, args []string) error {
			return runImport(c.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Path to import config (defaults to RAWIMPORT_CONFIG or import.yaml)")
	cmd.Flags().IntVarP(&opts.BatchSize, "batch-size", "b", 0, "Insert batch size (0 keeps config/adapter default)")
	cmd.Flags().StringVar(&opts.IndexFolder, "index-folder", "", "Folder holding categorical index files")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Process rows without writing indexes, rows or checkpoint")

	return cmd
}
