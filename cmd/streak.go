package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingua/internal/streak"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show or record a user's daily streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var st streak.Status
		if record, _ := cmd.Flags().GetBool("record"); record {
			st, err = a.Progress.RecordActivity(cmd.Context(), user)
		} else {
			st, err = a.Streaks.Get(cmd.Context(), user)
		}
		if err != nil {
			return err
		}

		last := st.LastActivityDate
		if last == "" {
			last = "never"
		}
		fmt.Printf("current %d, longest %d, last active %s [%s]\n", st.Current, st.Longest, last, st.State)
		return nil
	},
}

func init() {
	streakCmd.Flags().String("user", "", "User id (required)")
	streakCmd.Flags().Bool("record", false, "Record activity for today first")
}
