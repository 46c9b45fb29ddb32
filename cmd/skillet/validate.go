package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/presenter"
	"github.com/skillet-ai/skillet/pkg/skills"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate skill definition files without running them",
	Long: `Validate parses each given YAML file and checks it for structural
problems: missing fields, duplicate bindings, unknown step kinds, and
references to bindings that no earlier step produces. With no arguments,
every skill in the catalog directories is validated instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			validateCatalog()
			return
		}

		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				presenter.Error(err, fmt.Sprintf("failed to read %s", path))
				failed++
				continue
			}
			if _, err := skills.Parse(data); err != nil {
				presenter.Error(err, fmt.Sprintf("%s is invalid", path))
				failed++
				continue
			}
			presenter.Success(fmt.Sprintf("%s is valid", path))
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func validateCatalog() {
	catalog, err := loadCatalog()
	if err != nil {
		presenter.Error(err, "failed to load skill catalog")
		os.Exit(1)
	}
	for _, def := range catalog.List() {
		presenter.Success(fmt.Sprintf("%s is valid", def.Name))
	}
	presenter.Info(fmt.Sprintf("%d skills loaded", catalog.Len()))
}
