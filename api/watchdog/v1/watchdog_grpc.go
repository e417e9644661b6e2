package watchdogv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "procwatch.watchdog.v1.Watchdog"

const (
	Watchdog_Ping_FullMethodName      = "/procwatch.watchdog.v1.Watchdog/Ping"
	Watchdog_List_FullMethodName      = "/procwatch.watchdog.v1.Watchdog/List"
	Watchdog_Add_FullMethodName       = "/procwatch.watchdog.v1.Watchdog/Add"
	Watchdog_Select_FullMethodName    = "/procwatch.watchdog.v1.Watchdog/Select"
	Watchdog_Configure_FullMethodName = "/procwatch.watchdog.v1.Watchdog/Configure"
	Watchdog_Remove_FullMethodName    = "/procwatch.watchdog.v1.Watchdog/Remove"
	Watchdog_Processes_FullMethodName = "/procwatch.watchdog.v1.Watchdog/Processes"
	Watchdog_Events_FullMethodName    = "/procwatch.watchdog.v1.Watchdog/Events"
)

// WatchdogClient is the client API for the Watchdog service.
type WatchdogClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	Add(ctx context.Context, in *AddRequest, opts ...grpc.CallOption) (*AddResponse, error)
	Select(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*EntryResponse, error)
	Configure(ctx context.Context, in *ConfigureRequest, opts ...grpc.CallOption) (*EntryResponse, error)
	Remove(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*EntryResponse, error)
	Processes(ctx context.Context, in *ProcessesRequest, opts ...grpc.CallOption) (*ProcessesResponse, error)
	// Events streams watchdog events until ctx ends or the daemon stops.
	Events(ctx context.Context, in *EventsRequest, opts ...grpc.CallOption) (Watchdog_EventsClient, error)
}

type watchdogClient struct {
	cc grpc.ClientConnInterface
}

func NewWatchdogClient(cc grpc.ClientConnInterface) WatchdogClient {
	return &watchdogClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	args, err := Marshal(in)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	reply := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, args, reply, opts...); err != nil {
		return nil, err
	}
	out := new(Resp)
	if err := Unmarshal(reply, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (c *watchdogClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingRequest, PingResponse](ctx, c.cc, Watchdog_Ping_FullMethodName, in, opts)
}

func (c *watchdogClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListRequest, ListResponse](ctx, c.cc, Watchdog_List_FullMethodName, in, opts)
}

func (c *watchdogClient) Add(ctx context.Context, in *AddRequest, opts ...grpc.CallOption) (*AddResponse, error) {
	return invoke[AddRequest, AddResponse](ctx, c.cc, Watchdog_Add_FullMethodName, in, opts)
}

func (c *watchdogClient) Select(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*EntryResponse, error) {
	return invoke[SelectRequest, EntryResponse](ctx, c.cc, Watchdog_Select_FullMethodName, in, opts)
}

func (c *watchdogClient) Configure(ctx context.Context, in *ConfigureRequest, opts ...grpc.CallOption) (*EntryResponse, error) {
	return invoke[ConfigureRequest, EntryResponse](ctx, c.cc, Watchdog_Configure_FullMethodName, in, opts)
}

func (c *watchdogClient) Remove(ctx context.Context, in *SelectRequest, opts ...grpc.CallOption) (*EntryResponse, error) {
	return invoke[SelectRequest, EntryResponse](ctx, c.cc, Watchdog_Remove_FullMethodName, in, opts)
}

func (c *watchdogClient) Processes(ctx context.Context, in *ProcessesRequest, opts ...grpc.CallOption) (*ProcessesResponse, error) {
	return invoke[ProcessesRequest, ProcessesResponse](ctx, c.cc, Watchdog_Processes_FullMethodName, in, opts)
}

func (c *watchdogClient) Events(ctx context.Context, in *EventsRequest, opts ...grpc.CallOption) (Watchdog_EventsClient, error) {
	stream, err := c.cc.NewStream(ctx, &Watchdog_ServiceDesc.Streams[0], Watchdog_Events_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	args, err := Marshal(in)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if err := stream.SendMsg(args); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &watchdogEventsClient{ClientStream: stream}, nil
}

type Watchdog_EventsClient interface {
	Recv() (*Event, error)
	grpc.ClientStream
}

type watchdogEventsClient struct {
	grpc.ClientStream
}

func (x *watchdogEventsClient) Recv() (*Event, error) {
	reply := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(reply); err != nil {
		return nil, err
	}
	out := new(Event)
	if err := Unmarshal(reply, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// WatchdogServer is the server API for the Watchdog service. Embed
// UnimplementedWatchdogServer for forward compatibility.
type WatchdogServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Add(context.Context, *AddRequest) (*AddResponse, error)
	Select(context.Context, *SelectRequest) (*EntryResponse, error)
	Configure(context.Context, *ConfigureRequest) (*EntryResponse, error)
	Remove(context.Context, *SelectRequest) (*EntryResponse, error)
	Processes(context.Context, *ProcessesRequest) (*ProcessesResponse, error)
	Events(*EventsRequest, Watchdog_EventsServer) error
}

type Watchdog_EventsServer interface {
	Send(*Event) error
	grpc.ServerStream
}

type watchdogEventsServer struct {
	grpc.ServerStream
}

func (x *watchdogEventsServer) Send(ev *Event) error {
	out, err := Marshal(ev)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return x.ServerStream.SendMsg(out)
}

type UnimplementedWatchdogServer struct{}

func (UnimplementedWatchdogServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedWatchdogServer) List(context.Context, *ListRequest) (*ListResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedWatchdogServer) Add(context.Context, *AddRequest) (*AddResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Add not implemented")
}
func (UnimplementedWatchdogServer) Select(context.Context, *SelectRequest) (*EntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Select not implemented")
}
func (UnimplementedWatchdogServer) Configure(context.Context, *ConfigureRequest) (*EntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Configure not implemented")
}
func (UnimplementedWatchdogServer) Remove(context.Context, *SelectRequest) (*EntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Remove not implemented")
}
func (UnimplementedWatchdogServer) Processes(context.Context, *ProcessesRequest) (*ProcessesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Processes not implemented")
}

func (UnimplementedWatchdogServer) Events(*EventsRequest, Watchdog_EventsServer) error {
	return status.Error(codes.Unimplemented, "method Events not implemented")
}

func RegisterWatchdogServer(s grpc.ServiceRegistrar, srv WatchdogServer) {
	s.RegisterService(&Watchdog_ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](method string, call func(WatchdogServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed := new(Req)
			if err := Unmarshal(req.(*structpb.Struct), typed); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			resp, err := call(srv.(WatchdogServer), ctx, typed)
			if err != nil {
				return nil, err
			}
			out, err := Marshal(resp)
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			return out, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, handler)
	}
}

func eventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	req := new(EventsRequest)
	if err := Unmarshal(in, req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return srv.(WatchdogServer).Events(req, &watchdogEventsServer{ServerStream: stream})
}

// Watchdog_ServiceDesc is the grpc.ServiceDesc for the Watchdog service.
var Watchdog_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WatchdogServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler: unaryHandler(Watchdog_Ping_FullMethodName, func(s WatchdogServer, ctx context.Context, in *PingRequest) (*PingResponse, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: "List",
			Handler: unaryHandler(Watchdog_List_FullMethodName, func(s WatchdogServer, ctx context.Context, in *ListRequest) (*ListResponse, error) {
				return s.List(ctx, in)
			}),
		},
		{
			MethodName: "Add",
			Handler: unaryHandler(Watchdog_Add_FullMethodName, func(s WatchdogServer, ctx context.Context, in *AddRequest) (*AddResponse, error) {
				return s.Add(ctx, in)
			}),
		},
		{
			MethodName: "Select",
			Handler: unaryHandler(Watchdog_Select_FullMethodName, func(s WatchdogServer, ctx context.Context, in *SelectRequest) (*EntryResponse, error) {
				return s.Select(ctx, in)
			}),
		},
		{
			MethodName: "Configure",
			Handler: unaryHandler(Watchdog_Configure_FullMethodName, func(s WatchdogServer, ctx context.Context, in *ConfigureRequest) (*EntryResponse, error) {
				return s.Configure(ctx, in)
			}),
		},
		{
			MethodName: "Remove",
			Handler: unaryHandler(Watchdog_Remove_FullMethodName, func(s WatchdogServer, ctx context.Context, in *SelectRequest) (*EntryResponse, error) {
				return s.Remove(ctx, in)
			}),
		},
		{
			MethodName: "Processes",
			Handler: unaryHandler(Watchdog_Processes_FullMethodName, func(s WatchdogServer, ctx context.Context, in *ProcessesRequest) (*ProcessesResponse, error) {
				return s.Processes(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Events",
			Handler:       eventsHandler,
			ServerStreams: true,
		},
	},
}
