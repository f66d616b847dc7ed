package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jason-s-yu/tripeaks/internal/database"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded games",
		Long: `History lists games recorded with 'tripeaks play --history-db', newest first.
The default file is $XDG_DATA_HOME/tripeaks/history.db (TRIPEAKS_HISTORY_DB).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path := stringFlag(cmd, "db", cfg.HistoryDB)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return fmt.Errorf("history file not found: %s", path)
			}
			store, err := database.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			games, err := store.RecentGames(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(games) == 0 {
				fmt.Fprintln(out, "No games recorded yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tGAME\tSTATUS\tSCORE\tEVENTS\tDURATION")
			for _, g := range games {
				score, duration := "-", "-"
				if g.FinalScore != nil {
					score = fmt.Sprint(*g.FinalScore)
				}
				if g.EndTime != nil {
					duration = g.EndTime.Sub(g.StartTime).Round(time.Second).String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					g.StartTime.Local().Format("2006-01-02 15:04"), g.ID, g.Status, score, g.Events, duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("db", "", "SQLite history file (default from config)")
	cmd.Flags().Int("limit", 20, "maximum number of games to list")
	return cmd
}
