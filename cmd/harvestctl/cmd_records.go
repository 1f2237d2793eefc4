package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/matheus3301/wpp-harvest/internal/api"
	"github.com/matheus3301/wpp-harvest/internal/store"
	"github.com/spf13/cobra"
)

var (
	grantName string

	groupsCmd = &cobra.Command{
		Use:   "groups",
		Short: "List tracked groups",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.ListGroups(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				for _, g := range resp.Groups {
					fmt.Printf("%-20s %-30s members=%d contacts=%d added=%s\n",
						g.ID, g.Title, g.ParticipantCount, g.ContactsCount, g.AddedDate)
				}
				return nil
			})
		},
	}

	groupsRmCmd = &cobra.Command{
		Use:   "rm <group-id>",
		Short: "Stop tracking a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.RemoveGroup(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				fmt.Printf("Removed group %s (%s)\n", resp.Group.ID, resp.Group.Title)
				return nil
			})
		},
	}

	contactsCmd = &cobra.Command{
		Use:   "contacts",
		Short: "List harvested contacts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.ListContacts(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				for _, ct := range resp.Contacts {
					printContact(ct)
				}
				return nil
			})
		},
	}

	contactsRmCmd = &cobra.Command{
		Use:   "rm <user-id>",
		Short: "Delete a harvested contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.RemoveContact(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				fmt.Printf("Removed contact %s\n", resp.Contact.ID)
				return nil
			})
		},
	}

	blacklistCmd = &cobra.Command{
		Use:   "blacklist",
		Short: "List blacklisted users",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.ListBlacklist(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				for _, e := range resp.Entries {
					fmt.Printf("%-24s %-24s %s\n", e.ID, orDash(fullName(e.FirstName, e.LastName)), e.AddedDate)
				}
				return nil
			})
		},
	}

	blacklistAddCmd = &cobra.Command{
		Use:   "add <id|@username|+phone>",
		Short: "Blacklist a harvested contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.AddBlacklist(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				fmt.Printf("Blacklisted %s\n", resp.Entry.ID)
				return nil
			})
		},
	}

	blacklistRmCmd = &cobra.Command{
		Use:   "rm <user-id>",
		Short: "Lift a blacklist entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.RemoveBlacklist(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				fmt.Printf("Unblacklisted %s\n", resp.Entry.ID)
				return nil
			})
		},
	}

	adminsCmd = &cobra.Command{
		Use:   "admins",
		Short: "List group administrators",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				resp, err := c.ListAdmins(ctx)
				if err != nil {
					return err
				}
				if jsonFlag {
					outputJSON(resp)
					return nil
				}
				printAdmins(resp.Admins)
				return nil
			})
		},
	}

	adminsGrantCmd = &cobra.Command{
		Use:   "grant <group-id> <user-id>",
		Short: "Let a user administer a tracked group",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				if err := c.GrantAdmin(ctx, &api.AdminRequest{GroupID: args[0], UserID: args[1], FirstName: grantName}); err != nil {
					return err
				}
				fmt.Printf("Granted %s on %s\n", args[1], args[0])
				return nil
			})
		},
	}

	adminsRevokeCmd = &cobra.Command{
		Use:   "revoke <group-id> <user-id>",
		Short: "Remove a user from a group's administrators",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return unary(func(ctx context.Context, c *api.Client) error {
				if err := c.RevokeAdmin(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Printf("Revoked %s on %s\n", args[1], args[0])
				return nil
			})
		},
	}
)

func init() {
	groupsCmd.AddCommand(groupsRmCmd)
	contactsCmd.AddCommand(contactsRmCmd)
	blacklistCmd.AddCommand(blacklistAddCmd, blacklistRmCmd)
	adminsCmd.AddCommand(adminsGrantCmd, adminsRevokeCmd)
	adminsGrantCmd.Flags().StringVar(&grantName, "name", "", "display name recorded with the grant")
}

func printContact(c store.Contact) {
	handle := "-"
	if c.Username != "" {
		handle = "@" + c.Username
	}
	phone := "-"
	if c.Phone != nil {
		phone = *c.Phone
	}
	fmt.Printf("%-24s %-24s %-16s %-16s %s\n", c.ID, orDash(c.DisplayName()), handle, phone, orDash(c.GroupTitle))
}

func printAdmins(admins store.Admins) {
	groups := make([]string, 0, len(admins))
	for id := range admins {
		groups = append(groups, id)
	}
	sort.Strings(groups)
	for _, gid := range groups {
		fmt.Println(gid)
		users := make([]string, 0, len(admins[gid]))
		for uid := range admins[gid] {
			users = append(users, uid)
		}
		sort.Strings(users)
		for _, uid := range users {
			e := admins[gid][uid]
			fmt.Printf("  %-24s %-24s %s\n", uid, orDash(fullName(e.FirstName, e.LastName)), e.AddedDate)
		}
	}
}

func fullName(first, last string) string {
	return store.Contact{FirstName: first, LastName: last}.DisplayName()
}
