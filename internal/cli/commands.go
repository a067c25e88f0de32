package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/partmanager/internal/app"
	"github.com/matthewbaird/partmanager/internal/store"
	"github.com/matthewbaird/partmanager/internal/types"
)

func ListCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List buildings and their apartments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), load, func(a *app.App) error {
				out := cmd.OutOrStdout()
				for _, b := range a.Portfolio.Buildings() {
					fmt.Fprintf(out, "%s  %s\n", b.ID, b.Name)
					for _, apt := range b.Apartments {
						fmt.Fprintf(out, "  %s  %s (%d rooms, %d tenants)\n", apt.ID, apt.Name, len(apt.Rooms), len(apt.Tenants))
					}
				}
				return nil
			})
		},
	}
}

func ImportCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace all data with an exported document",
		Long:  `Reads a document written by export, or by any earlier version of the app, and replaces the stored buildings with it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return withApp(cmd.Context(), load, func(a *app.App) error {
				if err := a.Portfolio.Import(cmd.Context(), data); err != nil {
					return fmt.Errorf("importing %s: %w", args[0], err)
				}
				bs := a.Portfolio.Buildings()
				apts := 0
				for _, b := range bs {
					apts += len(b.Apartments)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d buildings, %d apartments\n", len(bs), apts)
				return nil
			})
		},
	}
}

func ExportCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all data as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return withApp(cmd.Context(), load, func(a *app.App) error {
				data, err := a.Portfolio.Export()
				if err != nil {
					return fmt.Errorf("encoding export: %w", err)
				}
				if output == "" || output == "-" {
					_, err := cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	return cmd
}

func MetricsCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics [id]",
		Short: "Show revenue, cost and profit for an apartment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			building, _ := cmd.Flags().GetBool("building")
			return withApp(cmd.Context(), load, func(a *app.App) error {
				if building {
					bm, err := a.Portfolio.BuildingMetrics(args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), bm)
				}
				m, err := a.Portfolio.Metrics(args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	}
	cmd.Flags().Bool("building", false, "treat the id as a building and roll up its apartments")
	return cmd
}

// periodFlags registers --month and --year defaulting to the current month.
func periodFlags(cmd *cobra.Command) {
	now := time.Now()
	cmd.Flags().Int("month", int(now.Month()), "month, 1-12")
	cmd.Flags().Int("year", now.Year(), "year")
}

func period(cmd *cobra.Command) (time.Month, int) {
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")
	return time.Month(month), year
}

func RentCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rent [apartment-id]",
		Short: "Generate the month's missing rent payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, year := period(cmd)
			return withApp(cmd.Context(), load, func(a *app.App) error {
				created, err := a.Portfolio.GenerateRentPayments(cmd.Context(), args[0], month, year)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(created) == 0 {
					fmt.Fprintf(out, "No new rent payments for %04d-%02d.\n", year, month)
					return nil
				}
				for _, p := range created {
					fmt.Fprintf(out, "%s  room %s  due %s  %.2f\n", p.ID, p.RoomID, p.DueDate, p.Amount)
				}
				return nil
			})
		},
	}
	periodFlags(cmd)
	return cmd
}

func SplitCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split [apartment-id]",
		Short: "Split a bill between tenants by days of presence",
		Long:  `Divides --total across the apartment's tenants in proportion to the days each was present between --from and --to. With --create the shares are recorded as bill payments for --month/--year.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, _ := cmd.Flags().GetFloat64("total")
			fromRaw, _ := cmd.Flags().GetString("from")
			toRaw, _ := cmd.Flags().GetString("to")
			create, _ := cmd.Flags().GetBool("create")

			from, ok := types.ParseDate(fromRaw)
			if !ok {
				return fmt.Errorf("--from must be a YYYY-MM-DD date, got %q", fromRaw)
			}
			to, ok := types.ParseDate(toRaw)
			if !ok {
				return fmt.Errorf("--to must be a YYYY-MM-DD date, got %q", toRaw)
			}
			month, year := period(cmd)

			return withApp(cmd.Context(), load, func(a *app.App) error {
				split, err := a.Portfolio.SplitBill(args[0], total, from, to)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), split); err != nil {
					return err
				}
				if !create {
					return nil
				}
				created, err := a.Portfolio.AddBillPayments(cmd.Context(), args[0], split.Allocations, month, year)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d bill payments for %04d-%02d\n", len(created), year, month)
				return nil
			})
		},
	}
	cmd.Flags().Float64("total", 0, "bill amount")
	cmd.Flags().String("from", "", "first day of the billing period (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last day of the billing period (YYYY-MM-DD)")
	cmd.Flags().Bool("create", false, "record the shares as bill payments")
	periodFlags(cmd)
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func MigrateCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !cfg.SQL() {
				return fmt.Errorf("STORE=%s has no database to migrate", cfg.Store)
			}
			_, db, err := store.OpenSQL(cmd.Context(), cfg.Store, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
			return nil
		},
	}
}

