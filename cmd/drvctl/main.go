package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/drv/internal/session"
	"github.com/matheus3301/drv/internal/tui/client"
)

const callTimeout = 30 * time.Second

var (
	sessionFlag string
	jsonFlag    bool
)

var rootCmd = &cobra.Command{
	Use:           "drvctl",
	Short:         "Control a driver session daemon",
	Long:          `drvctl talks to the drvd daemon of a session: sign in, list and advance orders, chat with customers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "session name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.AddCommand(statusCmd, loginCmd, logoutCmd, ordersCmd, advanceCmd, chatCmd, sendCmd, notificationsCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", status.Convert(err).Message())
		os.Exit(1)
	}
}

// withClient resolves the session, dials its daemon and runs fn with a
// bounded context.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	sessionName, err := session.Resolve(sessionFlag)
	if err != nil {
		return err
	}
	c, err := client.New(session.SocketPath(sessionName))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for session %q: %w", sessionName, err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	return fn(ctx, c)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
