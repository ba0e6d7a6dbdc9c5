package main

import (
	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/internal/planner/sync"
)

var importReplace bool

// importCmd loads a catalog dump into the database
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import items, buildings and recipes from a JSON catalog dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		syncer := sync.NewSyncer(a.db)
		if importReplace {
			log.Info("clearing existing recipes")
			if err := syncer.ClearCatalog(ctx); err != nil {
				return err
			}
		}

		log.Info("importing catalog", "file", args[0])
		summary, err := syncer.ImportCatalogFromFile(ctx, args[0])
		if err != nil {
			return err
		}
		a.catalog.Invalidate()

		log.Info("catalog imported successfully",
			"items", summary.Items,
			"buildings", summary.Buildings,
			"recipes", summary.Recipes)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Remove existing recipes before importing")
}
