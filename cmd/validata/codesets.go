package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oncoqa/validata/internal/model"
)

var codesetsCmd = &cobra.Command{
	Use:   "codesets",
	Short: "Inspect the reference code-set registry",
}

var codesetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded code sets and their sizes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := initRegistry()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STANDARD\tCODES\tVERSION")
		for _, std := range registry.Standards() {
			fmt.Fprintf(w, "%s\t%d\t%s\n", std.DisplayName(), registry.Count(std), registry.Version())
		}
		return w.Flush()
	},
}

var codesetsLookupCmd = &cobra.Command{
	Use:   "lookup <standard> <code>",
	Short: "Look up a single code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		std, err := model.ParseStandard(args[0])
		if err != nil {
			return eris.Wrap(err, "codesets lookup")
		}

		registry, err := initRegistry()
		if err != nil {
			return err
		}

		entry, ok := registry.Lookup(std, args[1])
		if !ok {
			return eris.Errorf("codesets lookup: code %q not found in the %s code set", args[1], std)
		}

		fmt.Printf("Code:        %s\n", entry.Code)
		fmt.Printf("Description: %s\n", entry.Description)
		fmt.Printf("Status:      %s\n", entry.Status)
		return nil
	},
}

func init() {
	codesetsCmd.AddCommand(codesetsListCmd)
	codesetsCmd.AddCommand(codesetsLookupCmd)
	rootCmd.AddCommand(codesetsCmd)
}
