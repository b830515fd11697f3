package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/matheus3301/drv/internal/domain"
	"github.com/matheus3301/drv/internal/orders"
	"github.com/matheus3301/drv/internal/rpc"
	"github.com/matheus3301/drv/internal/tui/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			resp, err := c.Session.GetStatus(ctx, &rpc.GetStatusRequest{})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(cmd.OutOrStdout(), resp)
			}
			printStatus(cmd.OutOrStdout(), resp)
			return nil
		})
	},
}

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign the driver in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		username := strings.TrimSpace(loginUsername)
		if username == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
			line, err := in.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read username: %w", err)
			}
			username = strings.TrimSpace(line)
		}
		password, err := readPassword(cmd, in)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			resp, err := c.Session.Login(ctx, &rpc.LoginRequest{Username: username, Password: password})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (driver %s)\n", orDash(resp.Driver.Name), resp.Driver.DriverID)
			return nil
		})
	},
}

// readPassword reads without echo from a terminal, or a plain line from a
// pipe.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign the driver out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if _, err := c.Session.Logout(ctx, &rpc.LogoutRequest{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

var ordersRefresh bool

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the driver's orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			view, err := c.Orders.ListOrders(ctx, &rpc.ListOrdersRequest{Refresh: ordersRefresh})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(cmd.OutOrStdout(), view)
			}
			return printOrders(cmd.OutOrStdout(), view)
		})
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance <order-id>",
	Short: "Move an order to its next status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orderID := domain.ID(args[0])
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			item, err := findOrder(ctx, c, orderID)
			if err != nil {
				return err
			}
			resp, err := c.Orders.AdvanceOrder(ctx, &rpc.AdvanceOrderRequest{
				OrderID:    orderID,
				FromStatus: item.Order.DriverStatus,
			})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Next == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Order %s: no action from %q\n", orderID, item.Order.DriverStatus)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s: %s -> %s\n", orderID, item.Order.DriverStatus, resp.Next)
			return nil
		})
	},
}

// findOrder looks orderID up in the cached list, refreshing once if it is
// missing.
func findOrder(ctx context.Context, c *client.Client, orderID domain.ID) (orders.Item, error) {
	for _, refresh := range []bool{false, true} {
		view, err := c.Orders.ListOrders(ctx, &rpc.ListOrdersRequest{Refresh: refresh})
		if err != nil {
			return orders.Item{}, err
		}
		if it, ok := view.Find(orderID); ok {
			return it, nil
		}
	}
	return orders.Item{}, fmt.Errorf("order %s is not assigned to this driver", orderID)
}

var chatCmd = &cobra.Command{
	Use:   "chat <order-id>",
	Short: "Show an order's chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			view, err := c.Chat.ListMessages(ctx, &rpc.ListMessagesRequest{OrderID: domain.ID(args[0]), Refresh: true})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(cmd.OutOrStdout(), view)
			}
			printChat(cmd.OutOrStdout(), view)
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <order-id> <text>...",
	Short: "Send a chat message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			return errors.New("message is empty")
		}
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if _, err := c.Chat.SendMessage(ctx, &rpc.SendMessageRequest{OrderID: domain.ID(args[0]), Text: text}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sent")
			return nil
		})
	},
}

var notificationsRefresh bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			view, err := c.Notifications.ListNotifications(ctx, &rpc.ListNotificationsRequest{Refresh: notificationsRefresh})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(cmd.OutOrStdout(), view)
			}
			return printNotifications(cmd.OutOrStdout(), view)
		})
	},
}

var (
	historyOrder string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the activity journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			resp, err := c.Session.ListActivity(ctx, &rpc.ListActivityRequest{OrderID: domain.ID(historyOrder), Limit: historyLimit})
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(cmd.OutOrStdout(), resp)
			}
			return printHistory(cmd.OutOrStdout(), resp.Entries)
		})
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "driver username (prompted when empty)")
	ordersCmd.Flags().BoolVar(&ordersRefresh, "refresh", true, "fetch from the backend before listing")
	notificationsCmd.Flags().BoolVar(&notificationsRefresh, "refresh", true, "fetch from the backend before listing")
	historyCmd.Flags().StringVar(&historyOrder, "order", "", "only entries for this order")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries")
}
