package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingua/internal/questionbank"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Work with exam question banks",
}

var bankInspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Validate a question bank (.xlsx or .json) and show its layout",
	Long:  "Validate a question bank and show per-category counts. With no file the built-in sample bank is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			bank *questionbank.Bank
			rep  *questionbank.Report
			err  error
		)
		if len(args) == 0 {
			bank = questionbank.Sample()
		} else {
			bank, rep, err = questionbank.Load(args[0])
		}
		if rep != nil {
			fmt.Printf("Rows: %d  Loaded: %d  Skipped: %d\n", rep.Rows, rep.Loaded, rep.Skipped)
			for _, e := range rep.Errors {
				fmt.Printf("  ! %s\n", e)
			}
			fmt.Println()
		}
		if err != nil {
			return err
		}

		fmt.Printf("%-24s  %-10s  %5s  %8s\n", "Category", "Section", "Count", "Standard")
		fmt.Println(strings.Repeat("─", 52))
		for _, cc := range bank.Summary() {
			marker := ""
			if cc.Count < cc.Standard {
				marker = "  (short)"
			}
			fmt.Printf("%-24s  %-10s  %5d  %8d%s\n", cc.Category, cc.Section, cc.Count, cc.Standard, marker)
		}
		fmt.Printf("\n%d questions\n", bank.Len())
		return nil
	},
}

func init() {
	bankCmd.AddCommand(bankInspectCmd)
}
