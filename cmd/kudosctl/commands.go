package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/db/postgres"
	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/status"
)

const dateLayout = "2006-01-02"

var errNoDatabase = errors.New("команда работает только с APP_STORE=postgres")

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "kudosctl",
		Short: "Kudos bot administration",
		Long: `Administrative commands for the kudos bot.

Reads the same environment as the bot (DATABASE_URL or DB_*, APP_STORE).
Slack credentials are not required.`,
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(open), newPurgeCmd(open), newStatusCmd(open))
	return root
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()
			if b.pool == nil {
				return errNoDatabase
			}

			applied, err := postgres.Migrate(cmd.Context(), b.pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s), schema version %d\n",
				applied, postgres.Migrations[len(postgres.Migrations)-1].Version)
			return nil
		},
	}
}

type purgeOptions struct {
	before   string
	channel  string
	timezone string
	dryRun   bool
}

func newPurgeCmd(open opener) *cobra.Command {
	var opts purgeOptions
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete kudos recorded before a date",
		Example: `  kudosctl purge --before 2024-01-01 --dry-run
  kudosctl purge --before 2024-01-01 --channel C0123456`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			before, err := parseBefore(opts.before, opts.timezone)
			if err != nil {
				return err
			}
			channelID := strings.TrimSpace(opts.channel)
			if channelID != "" && !channels.ValidChannelID(channelID) {
				return fmt.Errorf("%w: %q", common.ErrInvalidChannelID, channelID)
			}

			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			scope := "all channels"
			if channelID != "" {
				scope = "channel " + channelID
			}

			if opts.dryRun {
				n, err := b.stores.Purger.CountBefore(cmd.Context(), before, channelID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Would delete %d kudos before %s in %s\n",
					n, before.Format(time.RFC3339), scope)
				return nil
			}

			n, err := b.stores.Purger.Purge(cmd.Context(), before, channelID)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"before":  before.Format(time.RFC3339),
				"channel": channelID,
				"deleted": n,
			}).Info("Старые kudos удалены")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d kudos before %s in %s\n",
				n, before.Format(time.RFC3339), scope)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.before, "before", "", "delete kudos recorded before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.channel, "channel", "", "limit to one channel ID")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "UTC", "timezone of --before (IANA name or UTC+N)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "only count matching kudos")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}

// parseBefore — полночь даты в указанном поясе.
func parseBefore(date, tz string) (time.Time, error) {
	loc, err := common.LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--before: ожидается дата YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func newStatusCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show totals, last kudos and configured channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			rep, err := status.NewService(b.stores.Status, b.stores.Channels).Report(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd, rep)
			return nil
		},
	}
}

func printReport(cmd *cobra.Command, rep *status.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total kudos: %s\n", common.FormatNumber(rep.Total))
	if rep.Last != nil {
		fmt.Fprintf(out, "Last kudos: %s -> %s in %s at %s\n",
			rep.Last.Sender, rep.Last.Receiver, rep.Last.ChannelID, rep.Last.CreatedAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(out, "Last kudos: none")
	}
	fmt.Fprintf(out, "Active channels: %d\n", len(rep.ActiveChannels))
	for _, id := range rep.ActiveChannels {
		fmt.Fprintf(out, "  %s\n", id)
	}

	fmt.Fprintf(out, "Configured channels: %d\n", len(rep.Configs))
	for _, c := range rep.Configs {
		if target, ok := c.Override(); ok {
			fmt.Fprintf(out, "  %s -> leaderboard of %s\n", c.ChannelID, target)
			continue
		}
		fmt.Fprintf(out, "  %s personality=%s quota=%s limit=%s timezone=%s\n",
			c.ChannelID, orDefault(c.Personality), intOrDefault(c.MonthlyQuota),
			intOrDefault(c.LeaderboardLimit), orDefault(c.Timezone))
	}
}

func orDefault(s *string) string {
	if s == nil {
		return "default"
	}
	return *s
}

func intOrDefault(n *int) string {
	if n == nil {
		return "default"
	}
	return fmt.Sprint(*n)
}
