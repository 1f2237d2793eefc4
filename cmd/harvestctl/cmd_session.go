package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/matheus3301/wpp-harvest/internal/api"
	"github.com/matheus3301/wpp-harvest/internal/wa"
	"github.com/spf13/cobra"
)

var (
	refreshStats bool
	auditLimit   int

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show connection state and totals",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.Status(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				since := time.UnixMilli(resp.StatusSinceMs)
				fmt.Printf("Session:  %s\n", resp.Session)
				fmt.Printf("Status:   %s (since %s)\n", resp.Status, since.Format(time.DateTime))
				fmt.Printf("Account:  %s\n", orDash(resp.PhoneNumber))
				fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
				fmt.Printf("Contacts: %d  Groups: %d  Blacklisted: %d\n",
					resp.Stats.TotalContacts, resp.Stats.TotalGroups, resp.Stats.Blacklisted)
				if len(resp.Outbox) > 0 {
					fmt.Printf("Outbox:   queued=%d sent=%d failed=%d\n",
						resp.Outbox["queued"], resp.Outbox["sent"], resp.Outbox["failed"])
				}
				if resp.DroppedEvents > 0 {
					fmt.Printf("Dropped events: %d\n", resp.DroppedEvents)
				}
				return nil
			})
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show per-group contact counts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.GetStats(ctx, refreshStats)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				st := resp.Stats
				fmt.Printf("Contacts: %d  Groups: %d  Blacklisted: %d\n", st.TotalContacts, st.TotalGroups, st.Blacklisted)
				for _, g := range st.GroupsStats {
					fmt.Printf("  %-20s %-30s %d\n", g.ID, g.Title, g.ContactsCount)
				}
				fmt.Printf("Last update: %s\n", orDash(st.LastUpdate))
				return nil
			})
		},
	}

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Show recent administrative actions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.RecentAudit(ctx, auditLimit)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				for _, e := range resp.Entries {
					fmt.Printf("%s  %-16s %-15s %-16s %s\n",
						e.OccurredAt.Format(time.DateTime), e.ActorID, e.Action, orDash(e.TargetID), e.Outcome)
				}
				return nil
			})
		},
	}

	eventsCmd = &cobra.Command{
		Use:   "events [namespace]",
		Short: "Stream daemon events until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			namespace := ""
			if len(args) == 1 {
				namespace = args[0]
			}
			c, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			stream, err := c.WatchEvents(ctx, namespace)
			if err != nil {
				return err
			}
			for {
				evt, err := stream.Recv()
				if err != nil {
					if errors.Is(err, io.EOF) || ctx.Err() != nil {
						return nil
					}
					return err
				}
				if jsonFlag {
					outputJSON(evt)
					continue
				}
				fmt.Printf("%s  %-24s %s\n", time.UnixMilli(evt.OccurredAtMs).Format(time.TimeOnly), evt.Kind, evt.Payload)
			}
		},
	}

	pairCmd = &cobra.Command{
		Use:   "pair",
		Short: "Link the daemon to a WhatsApp account by QR code",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			stream, err := c.Pair(ctx)
			if err != nil {
				return err
			}
			for {
				evt, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := showPairEvent(os.Stdout, evt); err != nil {
					return err
				}
			}
		},
	}
)

func init() {
	statsCmd.Flags().BoolVar(&refreshStats, "refresh", false, "recompute before printing")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "number of entries")
}

func showPairEvent(w io.Writer, evt *api.PairEvent) error {
	switch evt.Type {
	case wa.PairQRCode:
		qr, err := renderQR(evt.QRCode)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "\nScan with WhatsApp > Linked devices:\n\n%s\n", qr)
	case wa.PairAuthenticated:
		_, _ = fmt.Fprintln(w, "Paired. The daemon is connecting.")
	case wa.PairTimeout:
		return errors.New("pairing timed out")
	default:
		return fmt.Errorf("pairing failed: %s", orDash(evt.Message))
	}
	return nil
}
