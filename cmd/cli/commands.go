package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/config"
	"github.com/iho/taxledger/internal/infrastructure/postgres"
)

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "taxledger",
		Short:         "TaxLedger CLI tool",
		Long:          `A command line interface for the TaxLedger API and database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "server", "http://localhost:8080", "Base URL of the TaxLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "Tenant to act for (X-Tenant-ID)")
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", "cli", "Actor recorded in the audit log")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		taxCmd(),
		migrateCmd(),
		ledgerCmd(opts),
		documentsCmd(opts),
		journalCmd(opts),
	)
	return rootCmd
}

func taxCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tax", Short: "Tax calculations"}

	var (
		rate, quantity, price, discount string
		inclusive, exempt, zeroRated    bool
	)
	compute := &cobra.Command{
		Use:   "compute",
		Short: "Compute net, tax and gross for one line without contacting the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("--rate: %w", err)
			}
			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("--qty: %w", err)
			}
			pct, err := decimal.NewFromString(discount)
			if err != nil {
				return fmt.Errorf("--discount: %w", err)
			}
			unit, err := domain.ParseMoney(price)
			if err != nil {
				return err
			}

			table := domain.TaxTable{{Code: "LINE", Rate: r, IsZeroRated: zeroRated}}
			if err := table[0].Validate(); err != nil {
				return err
			}
			res, err := domain.ComputeLine(domain.TaxLineInput{
				Quantity:         qty,
				UnitPrice:        unit,
				DiscountPct:      pct,
				TaxCode:          "LINE",
				AsOf:             time.Now(),
				IsInclusive:      inclusive,
				IsExemptOverride: exempt,
			}, table)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "net:   %s\n", res.Net.Display())
			fmt.Fprintf(out, "tax:   %s\n", res.Tax.Display())
			fmt.Fprintf(out, "gross: %s\n", res.Gross.Display())
			return nil
		},
	}
	compute.Flags().StringVar(&rate, "rate", "0", "Tax rate as a fraction, e.g. 0.09")
	compute.Flags().StringVar(&quantity, "qty", "1", "Quantity")
	compute.Flags().StringVar(&price, "price", "", "Unit price")
	compute.Flags().StringVar(&discount, "discount", "0", "Discount percentage 0-100")
	compute.Flags().BoolVar(&inclusive, "inclusive", false, "Price includes tax")
	compute.Flags().BoolVar(&exempt, "exempt", false, "Treat the line as exempt")
	compute.Flags().BoolVar(&zeroRated, "zero-rated", false, "Apply the rate as a zero-rated code")
	_ = compute.MarkFlagRequired("price")

	cmd.AddCommand(compute)
	return cmd
}

func migrateCmd() *cobra.Command {
	var databaseURL, path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if databaseURL == "" {
				databaseURL = cfg.DatabaseURL
			}
			if path == "" {
				path = cfg.MigrationsPath
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database URL (default $DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory (default $MIGRATIONS_PATH)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(*cobra.Command, []string) error {
				return postgres.RunMigrations(databaseURL, path)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(*cobra.Command, []string) error {
				return postgres.RunMigrationsDown(databaseURL, path)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				version, dirty, err := postgres.MigrationVersion(databaseURL, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %v\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Ledger operations"}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "consistency",
			Short: "Check that total debits equal total credits",
			RunE: func(cmd *cobra.Command, _ []string) error {
				var report struct {
					Consistent bool         `json:"consistent"`
					Difference domain.Money `json:"difference"`
				}
				status, err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency", nil, &report)
				if err != nil && status != http.StatusConflict {
					return err
				}
				if !report.Consistent {
					return fmt.Errorf("ledger inconsistent: difference %s", report.Difference.Display())
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Consistency check PASSED")
				return nil
			},
		},
		&cobra.Command{
			Use:   "trial-balance",
			Short: "Print the trial balance",
			RunE: func(cmd *cobra.Command, _ []string) error {
				var tb struct {
					Lines []struct {
						Code    string       `json:"code"`
						Name    string       `json:"name"`
						Debits  domain.Money `json:"debits"`
						Credits domain.Money `json:"credits"`
						Balance domain.Money `json:"balance"`
					} `json:"lines"`
					TotalDebits  domain.Money `json:"total_debits"`
					TotalCredits domain.Money `json:"total_credits"`
				}
				if _, err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/ledger/trial-balance", nil, &tb); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-30s %15s %15s %15s\n", "CODE", "NAME", "DEBITS", "CREDITS", "BALANCE")
				for _, l := range tb.Lines {
					fmt.Fprintf(out, "%-10s %-30s %15s %15s %15s\n", l.Code, truncate(l.Name, 30),
						l.Debits.Display(), l.Credits.Display(), l.Balance.Display())
				}
				fmt.Fprintf(out, "%-41s %15s %15s\n", "TOTAL", tb.TotalDebits.Display(), tb.TotalCredits.Display())
				return nil
			},
		},
	)
	return cmd
}

func documentsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "documents", Short: "Document lifecycle"}

	approve := &cobra.Command{
		Use:   "approve <document-id>",
		Short: "Approve a draft document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint(cmd, opts, "/api/v1/documents/"+args[0]+"/approve", nil)
		},
	}

	var reason string
	void := &cobra.Command{
		Use:   "void <document-id>",
		Short: "Void a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint(cmd, opts, "/api/v1/documents/"+args[0]+"/void", map[string]string{"reason": reason})
		},
	}
	void.Flags().StringVar(&reason, "reason", "", "Why the document is voided")
	_ = void.MarkFlagRequired("reason")

	cmd.AddCommand(approve, void)
	return cmd
}

func journalCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "journal", Short: "Journal entries"}

	var reason, date string
	reverse := &cobra.Command{
		Use:   "reverse <entry-id>",
		Short: "Reverse a posted journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"reason": reason}
			if date = strings.TrimSpace(date); date != "" {
				body["entry_date"] = date
			}
			return postAndPrint(cmd, opts, "/api/v1/journal-entries/"+args[0]+"/reverse", body)
		},
	}
	reverse.Flags().StringVar(&reason, "reason", "", "Why the entry is reversed")
	reverse.Flags().StringVar(&date, "date", "", "Reversal date YYYY-MM-DD (default today)")
	_ = reverse.MarkFlagRequired("reason")

	cmd.AddCommand(reverse)
	return cmd
}

func postAndPrint(cmd *cobra.Command, opts *options, path string, body any) error {
	var result map[string]any
	if _, err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, path, body, &result); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
