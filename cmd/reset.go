package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingua/internal/cache"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all progress for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to delete progress for %q without --yes", user)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		n, err := a.Store.DeleteUser(ctx, user)
		if err != nil {
			return err
		}
		if err := a.Exams.Abandon(ctx, user, ""); err != nil {
			return err
		}
		if a.Cache != nil {
			if err := a.Cache.Delete(ctx, cache.UserKeys(user)...); err != nil {
				fmt.Printf("Warning: could not clear cached values: %v\n", err)
			}
		}
		fmt.Printf("Deleted %d rows for %s.\n", n, user)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("user", "", "User id (required)")
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
}
