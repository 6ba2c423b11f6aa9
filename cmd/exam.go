package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lingua/internal/app"
	"github.com/abhisek/lingua/internal/exam"
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Run the timed mock exam from the terminal",
}

// examAction runs fn against the user's session and prints the result.
// Pending ticks are flushed before exit since each command is a new process.
func examAction(fn func(ctx context.Context, a *app.App, user, kind string, args []string) (exam.View, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("kind")
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		v, err := fn(ctx, a, user, kind, args)
		if ferr := a.Exams.Flush(ctx, user, kind); ferr != nil && err == nil {
			err = ferr
		}
		if v.Kind != "" {
			printView(v)
			if v.Finalized {
				for _, b := range a.Progress.ExamCompleted(ctx, user) {
					fmt.Printf("Badge unlocked: %s (%s)\n", b.Name, b.Rarity.DisplayName())
				}
			}
		}
		return err
	}
}

func printView(v exam.View) {
	if r := v.LastResult; r != nil {
		switch {
		case r.Forfeited:
			fmt.Printf("%s: forfeited\n", r.QuestionID)
		case r.Correct:
			fmt.Printf("%s: correct (+%d)\n", r.QuestionID, r.Points)
		default:
			fmt.Printf("%s: incorrect\n", r.QuestionID)
		}
	}
	fmt.Printf("[%s] %s  question %d/%d  time left %s\n",
		v.Kind, v.State, min(v.Index+1, v.Total), v.Total, clock(v.TimeRemaining))

	if sc := v.Score; sc != nil {
		fmt.Printf("Score %d  (listening %d, reading %d)  correct %d, unanswered %d\n",
			sc.Total, sc.Listening, sc.Reading, sc.Correct, sc.Unanswered)
		fmt.Println(strings.Repeat("─", 40))
		for _, info := range exam.Categories {
			fmt.Printf("  %-22s %4d / %d\n", info.Category, sc.Categories[info.Category], info.Max)
		}
		return
	}
	if q := v.Current; q != nil {
		fmt.Println()
		fmt.Printf("%s [%s]\n%s\n", q.ID, q.Category, q.Prompt)
		if len(q.Options) > 0 {
			fmt.Printf("Options: %s\n", strings.Join(q.Options, " / "))
		}
	}
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

var examStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session, discarding any saved one",
	Args:  cobra.NoArgs,
	RunE: examAction(func(ctx context.Context, a *app.App, user, kind string, _ []string) (exam.View, error) {
		return a.Exams.Start(ctx, user, kind)
	}),
}

var examStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved session",
	Args:  cobra.NoArgs,
	RunE: examAction(func(ctx context.Context, a *app.App, user, kind string, _ []string) (exam.View, error) {
		return a.Exams.Status(ctx, user, kind)
	}),
}

var examAnswerCmd = &cobra.Command{
	Use:   "answer <choice>",
	Short: "Answer the current question",
	Args:  cobra.ExactArgs(1),
	RunE: examAction(func(ctx context.Context, a *app.App, user, kind string, args []string) (exam.View, error) {
		return a.Exams.Answer(ctx, user, kind, args[0])
	}),
}

var examTickCmd = &cobra.Command{
	Use:   "tick <seconds>",
	Short: "Count down exam time",
	Args:  cobra.ExactArgs(1),
	RunE: examAction(func(ctx context.Context, a *app.App, user, kind string, args []string) (exam.View, error) {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return exam.View{}, fmt.Errorf("seconds must be a number: %w", err)
		}
		return a.Exams.Tick(ctx, user, kind, n)
	}),
}

var examBlurCmd = &cobra.Command{
	Use:   "blur",
	Short: "Report that the exam lost focus, forfeiting the current question",
	Args:  cobra.NoArgs,
	RunE: examAction(func(ctx context.Context, a *app.App, user, kind string, _ []string) (exam.View, error) {
		return a.Exams.VisibilityLost(ctx, user, kind)
	}),
}

var examCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Finish the session and store the result",
	Args:  cobra.NoArgs,
	RunE: examAction(func(ctx context.Context, a *app.App, user, kind string, _ []string) (exam.View, error) {
		return a.Exams.Complete(ctx, user, kind)
	}),
}

var examAbandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Discard the saved session without a result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("kind")
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Exams.Abandon(cmd.Context(), user, kind); err != nil {
			return err
		}
		fmt.Println("Session discarded.")
		return nil
	},
}

var examHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List completed exams, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Exams.History(cmd.Context(), user, limit)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s  %-10s  %5s  %9s  %7s  %8s\n", "Date", "Kind", "Total", "Listening", "Reading", "Answered")
		fmt.Println(strings.Repeat("─", 70))
		for _, r := range results {
			fmt.Printf("%-20s  %-10s  %5d  %9d  %7d  %8d\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Kind,
				r.TotalScore, r.ListeningScore, r.ReadingScore, r.Answered)
		}
		fmt.Printf("\n%d exams\n", len(results))
		return nil
	},
}

func init() {
	examCmd.PersistentFlags().String("user", "", "User id (required)")
	examCmd.PersistentFlags().String("kind", exam.KindFull, "Exam kind: full, listening or reading")
	examHistoryCmd.Flags().Int("limit", 20, "Maximum number of results")

	examCmd.AddCommand(examStartCmd, examStatusCmd, examAnswerCmd, examTickCmd,
		examBlurCmd, examCompleteCmd, examAbandonCmd, examHistoryCmd)
}
