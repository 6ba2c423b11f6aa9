package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show XP, streak, missions, goals and badges for a user",
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

		ov, err := a.Progress.Overview(cmd.Context(), user)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ov)
		}

		if ov.Stale {
			fmt.Println("(some values are from cache; storage is unavailable)")
		}
		fmt.Printf("XP        %d  (training %d, lessons %d, missions %d)\n",
			ov.XP.Total, ov.XP.Training, ov.XP.Lesson, ov.XP.Mission)
		fmt.Printf("Streak    %d day(s), longest %d  [%s]\n",
			ov.Streak.Current, ov.Streak.Longest, ov.Streak.State)

		fmt.Println()
		fmt.Printf("%-20s  %-9s  %-9s  %6s  %s\n", "Mission", "Type", "Progress", "XP", "Done")
		fmt.Println(strings.Repeat("─", 60))
		for _, m := range ov.Missions {
			done := ""
			if m.Completed {
				done = "✓"
			}
			fmt.Printf("%-20s  %-9s  %4d/%-4d  %6d  %s\n",
				m.ID, m.Type, m.CurrentProgress, m.Requirement, m.XPReward, done)
		}

		if len(ov.Goals) > 0 {
			fmt.Println()
			fmt.Printf("%-10s  %8s  %8s  %5s\n", "Goal", "Progress", "Target", "%")
			fmt.Println(strings.Repeat("─", 38))
			for _, g := range ov.Goals {
				fmt.Printf("%-10s  %8d  %8d  %4d%%\n", g.GoalType, g.Progress, g.Target, g.Percent)
			}
		}

		unlocked := 0
		for _, b := range ov.Badges.Badges {
			if b.Unlocked {
				unlocked++
			}
		}
		fmt.Println()
		fmt.Printf("Badges    %d/%d unlocked\n", unlocked, len(ov.Badges.Badges))
		for _, nt := range ov.Badges.NextTiers {
			fmt.Printf("  next %-12s %-24s %3d%%  (%s)\n",
				nt.Category.DisplayName(), nt.Badge.Name, nt.Percent, nt.Badge.Rarity.DisplayName())
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().String("user", "", "User id (required)")
	statsCmd.Flags().Bool("json", false, "Print the overview as JSON")
}
