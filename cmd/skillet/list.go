package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/presenter"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills available in the catalog",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		catalog, err := loadCatalog()
		if err != nil {
			presenter.Error(err, "failed to load skill catalog")
			os.Exit(1)
		}

		defs := catalog.List()
		if jsonOutput {
			data, err := json.MarshalIndent(defs, "", "  ")
			if err != nil {
				presenter.Error(err, "failed to encode skills")
				os.Exit(1)
			}
			fmt.Println(string(data))
			return
		}

		if len(defs) == 0 {
			presenter.Info("No skills found. Add YAML skill files under ./.skillet/skills or ~/.skillet/skills.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTEPS\tDESCRIPTION")
		for _, def := range defs {
			fmt.Fprintf(w, "%s\t%d\t%s\n", def.Name, len(def.Steps), def.Description)
		}
		w.Flush()
	},
}

func init() {
	listCmd.Flags().Bool("json", false, "Print skills as JSON")
}
