package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/citeas/internal/extract"
)

func init() {
	rootCmd.AddCommand(stepsCmd)
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Describe the sources searched for citation metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := extract.NewRegistry(extract.New(nil, nil))
		if err != nil {
			return err
		}
		configs := reg.SortedConfigs()
		if !humanOutput {
			return outputJSON(configs)
		}
		for _, c := range configs {
			outputHuman("%s (%s)\n  %s\n", c.Name, c.Subject, c.Intro)
			for _, l := range c.Links {
				outputHuman("  - %s: %s\n", l.Title, l.URL)
			}
		}
		return nil
	},
}
