package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oncoqa/validata/internal/model"
)

var rulesStandards []string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect rule definitions",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules that would run for the selected standards",
	RunE: func(cmd *cobra.Command, _ []string) error {
		standards := rulesStandards
		if len(standards) == 0 {
			standards = cfg.Validation.Standards
		}
		selection, err := model.ParseStandards(standards)
		if err != nil {
			return eris.Wrap(err, "rules list")
		}

		ruleSet, err := loadRules(selection)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTANDARD\tKIND\tSEVERITY\tFIELDS")
		for _, r := range ruleSet {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Standard, r.Kind, r.Severity, strings.Join(r.Targets(), ", "))
		}
		return w.Flush()
	},
}

func init() {
	rulesListCmd.Flags().StringSliceVar(&rulesStandards, "standards", nil, "standards to list rules for; default from config")

	rulesCmd.AddCommand(rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}
