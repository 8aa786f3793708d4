package execution

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// WorkQueueServer is implemented by the distributed-queue Execution
// Backend's worker side. Envelopes are JSON-encoded {task, recipe} payloads
// (see DistributedQueueBackend) carried as opaque bytes rather than a
// generated protobuf message, since this runtime's build does not run
// protoc; wrapperspb.BytesValue is itself a real, pre-compiled protobuf
// message, so the wire format is still genuine protobuf, not a hand-rolled
// substitute.
type WorkQueueServer interface {
	// Enqueue accepts one task envelope for a worker to pick up.
	Enqueue(ctx context.Context, envelope *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)

	// Dequeue blocks until an envelope is available or ctx is cancelled.
	Dequeue(ctx context.Context, worker *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)

	// Ack confirms a worker finished processing a task, by TaskID.
	Ack(ctx context.Context, taskID *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

const workQueueServiceName = "agentcore.execution.WorkQueue"

var workQueueServiceDesc = grpc.ServiceDesc{
	ServiceName: workQueueServiceName,
	HandlerType: (*WorkQueueServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Enqueue",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(wrapperspb.BytesValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(WorkQueueServer).Enqueue(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + workQueueServiceName + "/Enqueue"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(WorkQueueServer).Enqueue(ctx, req.(*wrapperspb.BytesValue))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "Dequeue",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(wrapperspb.StringValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(WorkQueueServer).Dequeue(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + workQueueServiceName + "/Dequeue"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(WorkQueueServer).Dequeue(ctx, req.(*wrapperspb.StringValue))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
		{
			MethodName: "Ack",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(wrapperspb.StringValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(WorkQueueServer).Ack(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + workQueueServiceName + "/Ack"}
				handler := func(ctx context.Context, req any) (any, error) {
					return srv.(WorkQueueServer).Ack(ctx, req.(*wrapperspb.StringValue))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/execution/workqueue.go",
}

// RegisterWorkQueueServer attaches srv to s under the WorkQueue service
// name, the hand-written equivalent of what protoc-gen-go-grpc would emit
// for a generated WorkQueue.pb.go.
func RegisterWorkQueueServer(s *grpc.Server, srv WorkQueueServer) {
	s.RegisterService(&workQueueServiceDesc, srv)
}

// WorkQueueClient is a thin hand-written client stub mirroring
// WorkQueueServer's methods over an existing connection, standing in for a
// generated grpc.ClientConn wrapper.
type WorkQueueClient struct {
	cc *grpc.ClientConn
}

// NewWorkQueueClient wraps an established connection.
func NewWorkQueueClient(cc *grpc.ClientConn) *WorkQueueClient {
	return &WorkQueueClient{cc: cc}
}

func (c *WorkQueueClient) Enqueue(ctx context.Context, envelope []byte) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/"+workQueueServiceName+"/Enqueue", wrapperspb.Bytes(envelope), out)
	return out, err
}

func (c *WorkQueueClient) Dequeue(ctx context.Context, worker string) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/"+workQueueServiceName+"/Dequeue", wrapperspb.String(worker), out)
	return out, err
}

func (c *WorkQueueClient) Ack(ctx context.Context, taskID string) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/"+workQueueServiceName+"/Ack", wrapperspb.String(taskID), out)
	return out, err
}
