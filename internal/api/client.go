package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client talks to a running daemon.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon's Unix socket. No I/O happens until the first
// call.
func Dial(socketPath string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	conn, err := grpc.NewClient("unix://"+socketPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Req, Resp any](ctx context.Context, c *Client, method string, in *Req) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return invoke[Empty, StatusResponse](ctx, c, "Status", &Empty{})
}

func (c *Client) ListGroups(ctx context.Context) (*GroupsResponse, error) {
	return invoke[Empty, GroupsResponse](ctx, c, "ListGroups", &Empty{})
}

func (c *Client) ListContacts(ctx context.Context) (*ContactsResponse, error) {
	return invoke[Empty, ContactsResponse](ctx, c, "ListContacts", &Empty{})
}

func (c *Client) ListBlacklist(ctx context.Context) (*BlacklistResponse, error) {
	return invoke[Empty, BlacklistResponse](ctx, c, "ListBlacklist", &Empty{})
}

func (c *Client) ListAdmins(ctx context.Context) (*AdminsResponse, error) {
	return invoke[Empty, AdminsResponse](ctx, c, "ListAdmins", &Empty{})
}

func (c *Client) GetStats(ctx context.Context, refresh bool) (*StatsResponse, error) {
	return invoke[StatsRequest, StatsResponse](ctx, c, "GetStats", &StatsRequest{Refresh: refresh})
}

func (c *Client) AddBlacklist(ctx context.Context, ref string) (*EntryResponse, error) {
	return invoke[RefRequest, EntryResponse](ctx, c, "AddBlacklist", &RefRequest{Ref: ref})
}

func (c *Client) RemoveBlacklist(ctx context.Context, id string) (*EntryResponse, error) {
	return invoke[IDRequest, EntryResponse](ctx, c, "RemoveBlacklist", &IDRequest{ID: id})
}

func (c *Client) RemoveContact(ctx context.Context, id string) (*ContactResponse, error) {
	return invoke[IDRequest, ContactResponse](ctx, c, "RemoveContact", &IDRequest{ID: id})
}

func (c *Client) RemoveGroup(ctx context.Context, id string) (*GroupResponse, error) {
	return invoke[IDRequest, GroupResponse](ctx, c, "RemoveGroup", &IDRequest{ID: id})
}

func (c *Client) GrantAdmin(ctx context.Context, req *AdminRequest) error {
	_, err := invoke[AdminRequest, Empty](ctx, c, "GrantAdmin", req)
	return err
}

func (c *Client) RevokeAdmin(ctx context.Context, groupID, userID string) error {
	_, err := invoke[AdminRequest, Empty](ctx, c, "RevokeAdmin", &AdminRequest{GroupID: groupID, UserID: userID})
	return err
}

func (c *Client) RecentAudit(ctx context.Context, limit int) (*AuditResponse, error) {
	return invoke[AuditRequest, AuditResponse](ctx, c, "RecentAudit", &AuditRequest{Limit: limit})
}

func openStream[Req, Resp any](ctx context.Context, c *Client, name string, in *Req) (grpc.ServerStreamingClient[Resp], error) {
	stream, err := c.conn.NewStream(ctx, streamDesc(name), fullMethod(name))
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Resp]{ClientStream: stream}
	if err := x.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// WatchEvents streams bus events whose kind starts with namespace.
func (c *Client) WatchEvents(ctx context.Context, namespace string) (grpc.ServerStreamingClient[Event], error) {
	return openStream[WatchRequest, Event](ctx, c, "WatchEvents", &WatchRequest{Namespace: namespace})
}

// Pair streams QR pairing steps until the daemon ends the flow.
func (c *Client) Pair(ctx context.Context) (grpc.ServerStreamingClient[PairEvent], error) {
	return openStream[Empty, PairEvent](ctx, c, "Pair", &Empty{})
}
