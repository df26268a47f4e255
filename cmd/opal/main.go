package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/theseusyang/opal/internal/config"
	"github.com/theseusyang/opal/internal/domain/record"
	"github.com/theseusyang/opal/internal/platform/auth"
	"github.com/theseusyang/opal/internal/platform/export"
	"github.com/theseusyang/opal/internal/platform/rest"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "opal",
		Short: "Client for OPAL clinical record servers",
	}

	rootCmd.AddCommand(episodesCmd())
	rootCmd.AddCommand(episodeCmd())
	rootCmd.AddCommand(extractCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() (*rest.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	token := auth.NewTokenSource(cfg.Token)
	if token.ExpiresWithin(time.Minute) {
		logger.Warn().Msg("configured token expires within a minute; requests may be rejected")
	}

	return rest.NewClient(rest.Options{
		BaseURL: cfg.BaseURL,
		Token:   token.Token(),
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Logger:  logger,
	}), nil
}

func episodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List all episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			episodes, err := record.LoadEpisodes(cmd.Context(), client)
			if err != nil {
				return err
			}

			ids := make([]int64, 0, len(episodes))
			for id := range episodes {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

			fmt.Printf("%-10s %-12s %-12s %s\n", "ID", "ADMITTED", "DISCHARGED", "ACTIVE")
			for _, id := range ids {
				e := episodes[id]
				fmt.Printf("%-10d %-12s %-12s %v\n",
					id,
					displayDate(e.Get("date_of_admission")),
					displayDate(e.Get("discharge_date")),
					e.Get("active"))
			}
			return nil
		},
	}
}

func episodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "episode <id>",
		Short: "Show one episode with its clinical records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("episode id must be numeric, got %q", args[0])
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			episode, err := record.LoadEpisode(cmd.Context(), client, id)
			if err != nil {
				return err
			}

			fmt.Printf("Episode %d\n", id)
			for k, v := range episode.MakeCopy() {
				if k == "id" {
					continue
				}
				fmt.Printf("  %s: %v\n", k, v)
			}
			for _, col := range episode.Schema().Columns() {
				count, err := episode.NumberOfItems(col.Name)
				if err != nil {
					return err
				}
				fmt.Printf("%s (%d)\n", col.Name, count)
				for i := 0; i < count; i++ {
					item, err := episode.GetItem(col.Name, i)
					if err != nil {
						return err
					}
					fmt.Printf("  - %v\n", item.MakeCopy())
				}
			}
			return nil
		},
	}
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Download all episodes as a spreadsheet workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			client, err := newClient()
			if err != nil {
				return err
			}
			schema, err := record.LoadExtractSchema(cmd.Context(), client)
			if err != nil {
				return err
			}
			episodes, err := record.LoadEpisodes(cmd.Context(), client)
			if err != nil {
				return err
			}

			data, err := export.WriteWorkbook(schema, episodes)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Wrote %d episode(s) to %s\n", len(episodes), out)
			return nil
		},
	}
	cmd.Flags().String("out", "extract.xlsx", "Path of the workbook to write")
	return cmd
}

func displayDate(v any) string {
	if d, ok := v.(record.Date); ok {
		return d.Display()
	}
	return ""
}
