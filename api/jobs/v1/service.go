package jobsv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "exobrain.jobs.v1.JobOrchestrator"

// JobOrchestratorServer is the server contract for the job ingress service.
type JobOrchestratorServer interface {
	EnqueueJob(ctx context.Context, req *EnqueueJobRequest) (*EnqueueJobReply, error)
	GetJobStatus(ctx context.Context, req *GetJobStatusRequest) (*GetJobStatusReply, error)
	WatchJobStatus(req *WatchJobStatusRequest, stream JobOrchestrator_WatchJobStatusServer) error
}

// UnimplementedJobOrchestratorServer provides forward-compatible defaults.
type UnimplementedJobOrchestratorServer struct{}

func (UnimplementedJobOrchestratorServer) EnqueueJob(context.Context, *EnqueueJobRequest) (*EnqueueJobReply, error) {
	return nil, status.Error(codes.Unimplemented, "method EnqueueJob not implemented")
}

func (UnimplementedJobOrchestratorServer) GetJobStatus(context.Context, *GetJobStatusRequest) (*GetJobStatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "method GetJobStatus not implemented")
}

func (UnimplementedJobOrchestratorServer) WatchJobStatus(*WatchJobStatusRequest, JobOrchestrator_WatchJobStatusServer) error {
	return status.Error(codes.Unimplemented, "method WatchJobStatus not implemented")
}

// JobOrchestrator_WatchJobStatusServer is the send side of the watch stream.
type JobOrchestrator_WatchJobStatusServer interface {
	Send(*JobStatusEvent) error
	Context() context.Context
	grpc.ServerStream
}

type watchJobStatusServer struct {
	grpc.ServerStream
}

func (s *watchJobStatusServer) Send(ev *JobStatusEvent) error { return s.ServerStream.SendMsg(ev) }

// RegisterJobOrchestratorServer registers srv with the gRPC server.
func RegisterJobOrchestratorServer(s grpc.ServiceRegistrar, srv JobOrchestratorServer) {
	s.RegisterService(&jobOrchestratorServiceDesc, srv)
}

func enqueueJobHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EnqueueJobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobOrchestratorServer).EnqueueJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/EnqueueJob"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobOrchestratorServer).EnqueueJob(ctx, req.(*EnqueueJobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getJobStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetJobStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobOrchestratorServer).GetJobStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetJobStatus"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobOrchestratorServer).GetJobStatus(ctx, req.(*GetJobStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func watchJobStatusHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchJobStatusRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(JobOrchestratorServer).WatchJobStatus(in, &watchJobStatusServer{ServerStream: stream})
}

var jobOrchestratorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobOrchestratorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "EnqueueJob", Handler: enqueueJobHandler},
		{MethodName: "GetJobStatus", Handler: getJobStatusHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchJobStatus", Handler: watchJobStatusHandler, ServerStreams: true},
	},
}

// JobOrchestratorClient is the client for the job ingress service.
type JobOrchestratorClient interface {
	EnqueueJob(ctx context.Context, req *EnqueueJobRequest, opts ...grpc.CallOption) (*EnqueueJobReply, error)
	GetJobStatus(ctx context.Context, req *GetJobStatusRequest, opts ...grpc.CallOption) (*GetJobStatusReply, error)
	WatchJobStatus(ctx context.Context, req *WatchJobStatusRequest, opts ...grpc.CallOption) (JobOrchestrator_WatchJobStatusClient, error)
}

// JobOrchestrator_WatchJobStatusClient is the receive side of the watch
// stream.
type JobOrchestrator_WatchJobStatusClient interface {
	Recv() (*JobStatusEvent, error)
	grpc.ClientStream
}

type watchJobStatusClient struct {
	grpc.ClientStream
}

func (c *watchJobStatusClient) Recv() (*JobStatusEvent, error) {
	ev := new(JobStatusEvent)
	if err := c.ClientStream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

type jobOrchestratorClient struct {
	cc grpc.ClientConnInterface
}

// NewJobOrchestratorClient creates a client over cc. Every call forces the
// JSON content-subtype so servers pick the registered codec.
func NewJobOrchestratorClient(cc grpc.ClientConnInterface) JobOrchestratorClient {
	return &jobOrchestratorClient{cc: cc}
}

func (c *jobOrchestratorClient) EnqueueJob(ctx context.Context, req *EnqueueJobRequest, opts ...grpc.CallOption) (*EnqueueJobReply, error) {
	out := new(EnqueueJobReply)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/EnqueueJob", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *jobOrchestratorClient) GetJobStatus(ctx context.Context, req *GetJobStatusRequest, opts ...grpc.CallOption) (*GetJobStatusReply, error) {
	out := new(GetJobStatusReply)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetJobStatus", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *jobOrchestratorClient) WatchJobStatus(ctx context.Context, req *WatchJobStatusRequest, opts ...grpc.CallOption) (JobOrchestrator_WatchJobStatusClient, error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &jobOrchestratorServiceDesc.Streams[0], "/"+ServiceName+"/WatchJobStatus", opts...)
	if err != nil {
		return nil, err
	}
	x := &watchJobStatusClient{ClientStream: stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
