package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/core/credit"
)

// opener connects to the ledger; the returned func releases it.
type opener func() (*credit.Service, func(), error)

type cli struct {
	open opener
	out  io.Writer
	fmt  string // "json" | "text"
}

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	c := &cli{open: open, out: out, fmt: "text"}

	root := &cobra.Command{
		Use:           "creditctl",
		Short:         "Operator tool for the credit ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.fmt != "text" && c.fmt != "json" {
				return fmt.Errorf("unknown output format %q (use json|text)", c.fmt)
			}
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.fmt, "out", c.fmt, "Output format: json|text")

	root.AddCommand(c.balanceCmd(), c.grantCmd(), c.consumeCmd(), c.historyCmd(), c.expireCmd())
	return root
}

func (c *cli) withService(fn func(*credit.Service) error) error {
	svc, closeFn, err := c.open()
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

func (c *cli) print(v interface{}, text func(w io.Writer)) error {
	if c.fmt == "json" {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(c.out)
	return nil
}

func parseUser(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q: %w", arg, err)
	}
	return id, nil
}

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user-id>",
		Short: "Show remaining and today's consumed credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(args[0])
			if err != nil {
				return err
			}
			return c.withService(func(svc *credit.Service) error {
				ctx := cmd.Context()
				balance, err := svc.GetRemainingCredits(ctx, userID)
				if err != nil {
					return err
				}
				today, err := svc.GetTodayConsumedCredits(ctx, userID)
				if err != nil {
					return err
				}
				return c.print(map[string]interface{}{
					"user_id":        userID,
					"balance":        balance,
					"today_consumed": today,
				}, func(w io.Writer) {
					fmt.Fprintf(w, "balance=%d today_consumed=%d\n", balance, today)
				})
			})
		},
	}
}

func (c *cli) grantCmd() *cobra.Command {
	var req credit.GrantRequest
	cmd := &cobra.Command{
		Use:   "grant <user-id>",
		Short: "Grant credits to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(args[0])
			if err != nil {
				return err
			}
			req.UserID = userID
			return c.withService(func(svc *credit.Service) error {
				granted, err := svc.GrantCredits(cmd.Context(), req)
				if err != nil {
					return err
				}
				return c.print(granted, func(w io.Writer) {
					fmt.Fprintf(w, "granted %d credits (%s), expires %s\n", granted.Credits, granted.TransactionNo, formatExpiry(granted.ExpiresAt))
				})
			})
		},
	}
	cmd.Flags().IntVar(&req.Credits, "credits", 0, "Credits to grant")
	cmd.Flags().IntVar(&req.ValidDays, "valid-days", 0, "Days until expiry, 0 never expires")
	cmd.Flags().StringVar(&req.Scene, "scene", credit.SceneGift, "Grant scene")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().StringVar(&req.UserEmail, "email", "", "User email recorded on the grant")
	_ = cmd.MarkFlagRequired("credits")
	return cmd
}

func (c *cli) consumeCmd() *cobra.Command {
	var req credit.ConsumeRequest
	cmd := &cobra.Command{
		Use:   "consume <user-id>",
		Short: "Debit credits from a user, oldest expiry first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(args[0])
			if err != nil {
				return err
			}
			req.UserID = userID
			return c.withService(func(svc *credit.Service) error {
				row, err := svc.ConsumeCredits(cmd.Context(), req)
				if err != nil {
					return err
				}
				return c.print(row, func(w io.Writer) {
					fmt.Fprintf(w, "consumed %d credits (%s)\n", -row.Credits, row.TransactionNo)
				})
			})
		},
	}
	cmd.Flags().IntVar(&req.Credits, "credits", 0, "Credits to consume")
	cmd.Flags().StringVar(&req.Scene, "scene", "manual", "Consumption scene")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	_ = cmd.MarkFlagRequired("credits")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var f credit.ListFilter
	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "List ledger rows of a user, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUser(args[0])
			if err != nil {
				return err
			}
			f.UserID = userID
			return c.withService(func(svc *credit.Service) error {
				rows, total, err := svc.ListCredits(cmd.Context(), f)
				if err != nil {
					return err
				}
				return c.print(map[string]interface{}{"credits": rows, "total": total}, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "TRANSACTION\tTYPE\tSCENE\tCREDITS\tREMAINING\tSTATUS\tEXPIRES")
					for _, r := range rows {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
							r.TransactionNo, r.TransactionType, r.TransactionScene, r.Credits, r.RemainingCredits, r.Status, formatExpiry(r.ExpiresAt))
					}
					tw.Flush()
					fmt.Fprintf(w, "total=%d\n", total)
				})
			})
		},
	}
	cmd.Flags().StringVar(&f.TransactionType, "type", "", "Filter by type: grant|consume")
	cmd.Flags().IntVar(&f.Page, "page", 1, "Page")
	cmd.Flags().IntVar(&f.Limit, "limit", 30, "Rows per page")
	return cmd
}

func (c *cli) expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark grants past their expiry as expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(func(svc *credit.Service) error {
				n, err := svc.ExpireCredits(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(map[string]int64{"expired": n}, func(w io.Writer) {
					fmt.Fprintf(w, "expired=%d\n", n)
				})
			})
		},
	}
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
