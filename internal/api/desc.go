// Package api is the daemon's control surface: a gRPC service served on the
// session's Unix socket, encoded as JSON so it needs no generated code.
package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "harvest.v1.Admin"

// AdminServer is implemented by the daemon.
type AdminServer interface {
	Status(context.Context, *Empty) (*StatusResponse, error)
	ListGroups(context.Context, *Empty) (*GroupsResponse, error)
	ListContacts(context.Context, *Empty) (*ContactsResponse, error)
	ListBlacklist(context.Context, *Empty) (*BlacklistResponse, error)
	ListAdmins(context.Context, *Empty) (*AdminsResponse, error)
	GetStats(context.Context, *StatsRequest) (*StatsResponse, error)
	AddBlacklist(context.Context, *RefRequest) (*EntryResponse, error)
	RemoveBlacklist(context.Context, *IDRequest) (*EntryResponse, error)
	RemoveContact(context.Context, *IDRequest) (*ContactResponse, error)
	RemoveGroup(context.Context, *IDRequest) (*GroupResponse, error)
	GrantAdmin(context.Context, *AdminRequest) (*Empty, error)
	RevokeAdmin(context.Context, *AdminRequest) (*Empty, error)
	RecentAudit(context.Context, *AuditRequest) (*AuditResponse, error)
	WatchEvents(*WatchRequest, grpc.ServerStreamingServer[Event]) error
	Pair(*Empty, grpc.ServerStreamingServer[PairEvent]) error
}

// RegisterAdminServer attaches srv to s.
func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", AdminServer.Status),
		unary("ListGroups", AdminServer.ListGroups),
		unary("ListContacts", AdminServer.ListContacts),
		unary("ListBlacklist", AdminServer.ListBlacklist),
		unary("ListAdmins", AdminServer.ListAdmins),
		unary("GetStats", AdminServer.GetStats),
		unary("AddBlacklist", AdminServer.AddBlacklist),
		unary("RemoveBlacklist", AdminServer.RemoveBlacklist),
		unary("RemoveContact", AdminServer.RemoveContact),
		unary("RemoveGroup", AdminServer.RemoveGroup),
		unary("GrantAdmin", AdminServer.GrantAdmin),
		unary("RevokeAdmin", AdminServer.RevokeAdmin),
		unary("RecentAudit", AdminServer.RecentAudit),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchEvents", AdminServer.WatchEvents),
		serverStream("Pair", AdminServer.Pair),
	},
	Metadata: "harvest/v1/admin",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(AdminServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServer), ctx, req.(*Req))
			})
		},
	}
}

func serverStream[Req, Resp any](name string, call func(AdminServer, *Req, grpc.ServerStreamingServer[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(Req)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return call(srv.(AdminServer), in, &grpc.GenericServerStream[Req, Resp]{ServerStream: stream})
		},
	}
}

func streamDesc(name string) *grpc.StreamDesc {
	for i := range serviceDesc.Streams {
		if serviceDesc.Streams[i].StreamName == name {
			return &serviceDesc.Streams[i]
		}
	}
	panic("api: unknown stream " + name)
}
