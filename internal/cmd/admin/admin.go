// Package admin builds the operator CLI for seller review and site configuration.
package admin

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"text/tabwriter"
	"time"

	entrypoint "github.com/louisbranch/roleandroll/internal/platform/cmd"
	authsqlite "github.com/louisbranch/roleandroll/internal/services/auth/storage/sqlite"
	marketapp "github.com/louisbranch/roleandroll/internal/services/marketplace/app"
	"github.com/louisbranch/roleandroll/internal/services/marketplace/domain"
	marketsqlite "github.com/louisbranch/roleandroll/internal/services/marketplace/storage/sqlite"
	workersqlite "github.com/louisbranch/roleandroll/internal/services/worker/storage/sqlite"
	"github.com/spf13/cobra"
)

// Config holds admin CLI configuration.
type Config struct {
	AuthDBPath   string `env:"ROLEANDROLL_AUTH_DB_PATH" envDefault:"data/auth.db"`
	DBPath       string `env:"ROLEANDROLL_DB_PATH" envDefault:"data/roleandroll.db"`
	WorkerDBPath string `env:"ROLEANDROLL_WORKER_DB_PATH" envDefault:"data/worker.db"`
	// Actor is recorded as the deciding admin on seller reviews and config updates.
	Actor string `env:"ROLEANDROLL_ADMIN_ACTOR" envDefault:"admin-cli"`
}

// ParseConfig loads admin CLI defaults from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the CLI with args, writing results to out.
func Run(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAdmin, func(ctx context.Context) error {
		cmd := NewCommand(cfg, out)
		cmd.SetArgs(args)
		return cmd.ExecuteContext(ctx)
	})
}

// NewCommand returns the root command. Persistent flags override cfg.
func NewCommand(cfg Config, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operate the roleandroll marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&cfg.AuthDBPath, "auth-db-path", cfg.AuthDBPath, "accounts SQLite database path")
	root.PersistentFlags().StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "marketplace SQLite database path")
	root.PersistentFlags().StringVar(&cfg.WorkerDBPath, "worker-db-path", cfg.WorkerDBPath, "worker attempt SQLite database path")
	root.PersistentFlags().StringVar(&cfg.Actor, "as", cfg.Actor, "admin id recorded on decisions")

	root.AddCommand(
		sellersCommand(&cfg),
		configCommand(&cfg),
		usersCommand(&cfg),
		outboxCommand(&cfg),
		attemptsCommand(&cfg),
	)
	return root
}

// withService opens the marketplace store for the duration of fn.
func withService(ctx context.Context, cfg *Config, fn func(*marketapp.Service) error) error {
	store, err := marketsqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open marketplace sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close marketplace sqlite store: %v", closeErr)
		}
	}()
	return fn(marketapp.NewService(store))
}

// withAuthStore opens the accounts store for the duration of fn.
func withAuthStore(ctx context.Context, cfg *Config, fn func(*authsqlite.Store) error) error {
	store, err := authsqlite.Open(ctx, cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("open auth sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close auth sqlite store: %v", closeErr)
		}
	}()
	return fn(store)
}

func sellersCommand(cfg *Config) *cobra.Command {
	sellers := &cobra.Command{
		Use:   "sellers",
		Short: "Review seller applications",
	}

	var status string
	var pageSize int
	var pageToken string
	list := &cobra.Command{
		Use:   "list",
		Short: "List seller profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter domain.SellerStatus
			if status != "" {
				parsed, ok := domain.ParseSellerStatus(status)
				if !ok {
					return fmt.Errorf("unknown seller status %q", status)
				}
				filter = parsed
			}
			return withService(cmd.Context(), cfg, func(svc *marketapp.Service) error {
				page, err := svc.ListSellers(cmd.Context(), filter, pageSize, pageToken)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "USER\tSTATUS\tNAME\tSTRIPE ACCOUNT")
				for _, s := range page.Sellers {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.UserID, s.Status, s.DisplayName, s.StripeAccountID)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if page.NextPageToken != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "next page: %s\n", page.NextPageToken)
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status (PRE_REGISTER, PENDING, APPROVED, REJECTED)")
	list.Flags().IntVar(&pageSize, "page-size", marketapp.DefaultPageSize, "results per page")
	list.Flags().StringVar(&pageToken, "page-token", "", "continue from a previous page")

	approve := &cobra.Command{
		Use:   "approve [user-id]",
		Short: "Approve a pending seller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), cfg, func(svc *marketapp.Service) error {
				profile, err := svc.ApproveSeller(cmd.Context(), cfg.Actor, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seller %s is %s\n", profile.UserID, profile.Status)
				return nil
			})
		},
	}

	var reason string
	reject := &cobra.Command{
		Use:   "reject [user-id]",
		Short: "Reject a pending seller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), cfg, func(svc *marketapp.Service) error {
				profile, err := svc.RejectSeller(cmd.Context(), cfg.Actor, args[0], reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seller %s is %s: %s\n", profile.UserID, profile.Status, profile.RejectionReason)
				return nil
			})
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "rejection reason shown to the seller")
	_ = reject.MarkFlagRequired("reason")

	sellers.AddCommand(list, approve, reject)
	return sellers
}

func configCommand(cfg *Config) *cobra.Command {
	config := &cobra.Command{
		Use:   "config",
		Short: "Inspect and update site configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current site configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), cfg, func(svc *marketapp.Service) error {
				site, err := svc.SiteConfig(cmd.Context())
				if err != nil {
					return err
				}
				printSiteConfig(cmd.OutOrStdout(), site)
				return nil
			})
		},
	}

	setFee := &cobra.Command{
		Use:   "set-fee [basis-points]",
		Short: "Set the platform fee in basis points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bps, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("fee must be an integer number of basis points: %w", err)
			}
			return updateSiteConfig(cmd, cfg, domain.SiteConfigPatch{FeeBasisPoints: &bps})
		},
	}

	maintenance := &cobra.Command{
		Use:   "maintenance [on|off]",
		Short: "Toggle maintenance mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch args[0] {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("maintenance must be on or off, got %q", args[0])
			}
			return updateSiteConfig(cmd, cfg, domain.SiteConfigPatch{Maintenance: &on})
		},
	}

	config.AddCommand(show, setFee, maintenance)
	return config
}

func updateSiteConfig(cmd *cobra.Command, cfg *Config, patch domain.SiteConfigPatch) error {
	return withService(cmd.Context(), cfg, func(svc *marketapp.Service) error {
		site, err := svc.UpdateSiteConfig(cmd.Context(), cfg.Actor, patch)
		if err != nil {
			return err
		}
		printSiteConfig(cmd.OutOrStdout(), site)
		return nil
	})
}

func printSiteConfig(out io.Writer, site domain.SiteConfig) {
	fmt.Fprintf(out, "fee_bps=%d maintenance=%t", site.FeeBasisPoints, site.Maintenance)
	if site.UpdatedBy != "" {
		fmt.Fprintf(out, " updated_by=%s updated_at=%s", site.UpdatedBy, site.UpdatedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(out)
}

func usersCommand(cfg *Config) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Inspect accounts",
	}

	var pageSize int
	var pageToken string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts ordered by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuthStore(cmd.Context(), cfg, func(store *authsqlite.Store) error {
				page, err := store.ListUsers(cmd.Context(), marketapp.NormalizePageSize(pageSize), pageToken)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE")
				for _, u := range page.Users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.DisplayName, u.Role)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				if page.NextPageToken != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "next page: %s\n", page.NextPageToken)
				}
				return nil
			})
		},
	}
	list.Flags().IntVar(&pageSize, "page-size", marketapp.DefaultPageSize, "results per page")
	list.Flags().StringVar(&pageToken, "page-token", "", "continue from a previous page")

	prune := &cobra.Command{
		Use:   "prune-states",
		Short: "Delete expired sign-in states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuthStore(cmd.Context(), cfg, func(store *authsqlite.Store) error {
				if err := store.DeleteExpiredOAuthStates(cmd.Context(), time.Now()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "expired sign-in states deleted")
				return nil
			})
		},
	}

	users.AddCommand(list, prune)
	return users
}

func outboxCommand(cfg *Config) *cobra.Command {
	outbox := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect integration events",
	}
	show := &cobra.Command{
		Use:   "show [event-id]",
		Short: "Print one outbox event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := marketsqlite.Open(cmd.Context(), cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open marketplace sqlite store: %w", err)
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					log.Printf("close marketplace sqlite store: %v", closeErr)
				}
			}()
			event, err := store.GetOutboxEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id=%s type=%s status=%s attempts=%d\n", event.ID, event.EventType, event.Status, event.AttemptCount)
			fmt.Fprintf(out, "next_attempt_at=%s\n", event.NextAttemptAt.UTC().Format(time.RFC3339))
			if event.LastError != "" {
				fmt.Fprintf(out, "last_error=%s\n", event.LastError)
			}
			fmt.Fprintf(out, "payload=%s\n", event.PayloadJSON)
			return nil
		},
	}
	outbox.AddCommand(show)
	return outbox
}

func attemptsCommand(cfg *Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Show recent worker processing attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := workersqlite.Open(cmd.Context(), cfg.WorkerDBPath)
			if err != nil {
				return fmt.Errorf("open worker sqlite store: %w", err)
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					log.Printf("close worker sqlite store: %v", closeErr)
				}
			}()
			attempts, err := store.ListAttempts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tEVENT\tTYPE\tOUTCOME\tATTEMPT\tERROR")
			for _, a := range attempts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					a.CreatedAt.UTC().Format(time.RFC3339), a.EventID, a.EventType, a.Outcome, a.AttemptCount, a.LastError)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum attempts to show")
	return cmd
}
