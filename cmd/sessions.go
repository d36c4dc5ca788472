package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aish-sh/aish/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved conversations",
	RunE:  runSessions,
}

var sessionsDelete string

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVar(&sessionsDelete, "delete", "", "Delete the session with this ID")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := session.NewStore(cfg.Sessions)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if sessionsDelete != "" {
		if err := store.Delete(ctx, sessionsDelete); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", sessionsDelete)
		return nil
	}

	sessions, err := store.List(ctx, 20)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no saved sessions")
		return nil
	}

	current, err := store.GetCurrent(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		marker := "  "
		if current != nil && current.ID == s.ID {
			marker = "* "
		}
		fmt.Printf("%s%s  %s/%s  %s\n", marker, s.ID, s.Provider, s.Model,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
