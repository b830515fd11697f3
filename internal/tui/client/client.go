// Package client dials a session daemon.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/matheus3301/drv/internal/rpc"
)

// Client wraps gRPC connections to the daemon.
type Client struct {
	conn          *grpc.ClientConn
	Session       *rpc.SessionClient
	Orders        *rpc.OrderClient
	Chat          *rpc.ChatClient
	Notifications *rpc.NotificationClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
// No connection is made until the first call.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(rpc.CallOption()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:          conn,
		Session:       rpc.NewSessionClient(conn),
		Orders:        rpc.NewOrderClient(conn),
		Chat:          rpc.NewChatClient(conn),
		Notifications: rpc.NewNotificationClient(conn),
	}, nil
}

// Ping reports whether a daemon answers on the socket.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Session.GetStatus(ctx, &rpc.GetStatusRequest{}, grpc.WaitForReady(false))
	return err
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
