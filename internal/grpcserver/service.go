package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "audit.v1.AuditService"

	IdentifySensitiveFilesMethod = "/" + ServiceName + "/IdentifySensitiveFiles"
	InDepthAnalysisMethod        = "/" + ServiceName + "/InDepthAnalysis"
)

// AuditServiceServer takes the request as a generic Struct; the answer is the raw model text.
type AuditServiceServer interface {
	IdentifySensitiveFiles(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	InDepthAnalysis(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func identifySensitiveFilesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditServiceServer).IdentifySensitiveFiles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IdentifySensitiveFilesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditServiceServer).IdentifySensitiveFiles(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func inDepthAnalysisHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditServiceServer).InDepthAnalysis(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InDepthAnalysisMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditServiceServer).InDepthAnalysis(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IdentifySensitiveFiles", Handler: identifySensitiveFilesHandler},
		{MethodName: "InDepthAnalysis", Handler: inDepthAnalysisHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "audit/v1/audit.proto",
}

type AuditServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuditServiceClient(cc grpc.ClientConnInterface) *AuditServiceClient {
	return &AuditServiceClient{cc: cc}
}

func (c *AuditServiceClient) IdentifySensitiveFiles(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, IdentifySensitiveFilesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuditServiceClient) InDepthAnalysis(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, InDepthAnalysisMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
