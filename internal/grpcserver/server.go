// Package grpcserver exposes the audit operations as audit.v1.AuditService.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/checkmarxDev/audit-wrapper/internal/metrics"
	"github.com/checkmarxDev/audit-wrapper/pkg/auth"
	"github.com/checkmarxDev/audit-wrapper/pkg/wrapper"
)

const (
	transportName = "grpc"

	tokenMetadataKey = "x-token"
	queryMetadataKey = "token"
)

// Auditor is the part of *wrapper.AuditWrapper the service needs.
type Auditor interface {
	IdentifySensitiveFiles(ctx context.Context, files []wrapper.File) (string, error)
	InDepthAnalysis(ctx context.Context, code string, opts ...wrapper.AnalysisOption) (string, error)
}

type analysisRequest struct {
	Code      string            `json:"code"`
	Language  string            `json:"language"`
	AuditType wrapper.AuditType `json:"auditType"`
}

type Server struct {
	auditor Auditor
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func New(auditor Auditor, logger zerolog.Logger, m *metrics.Metrics) *Server {
	return &Server{
		auditor: auditor,
		logger:  logger.With().Str("component", "grpc").Logger(),
		metrics: m,
	}
}

// NewGRPCServer returns a grpc.Server with the service registered behind the auth and logging interceptors.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.logUnary, s.authUnary))
	srv := grpc.NewServer(opts...)
	RegisterAuditServiceServer(srv, s)
	return srv
}

func (s *Server) IdentifySensitiveFiles(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	files, err := filesFromStruct(in)
	if err != nil {
		return nil, err
	}
	result, err := s.auditor.IdentifySensitiveFiles(ctx, files)
	s.metrics.RecordAPIRequest(transportName, "sensitive-files", err)
	if err != nil {
		return nil, remoteError(err)
	}
	return wrapperspb.String(result), nil
}

func (s *Server) InDepthAnalysis(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	var req analysisRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	result, err := s.auditor.InDepthAnalysis(ctx, req.Code,
		wrapper.WithLanguage(req.Language),
		wrapper.WithAuditType(req.AuditType))
	s.metrics.RecordAPIRequest(transportName, "analysis", err)
	if err != nil {
		return nil, remoteError(err)
	}
	return wrapperspb.String(result), nil
}

// filesFromStruct reads the files list. Struct keys carry no order, so extra keys are sorted.
func filesFromStruct(in *structpb.Struct) ([]wrapper.File, error) {
	value, ok := in.GetFields()["files"]
	if !ok {
		return nil, nil
	}
	list := value.GetListValue()
	if list == nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request: files must be a list")
	}
	files := make([]wrapper.File, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		descriptor := item.GetStructValue()
		if descriptor == nil {
			return nil, status.Error(codes.InvalidArgument, "invalid request: each file must be an object")
		}
		files = append(files, wrapper.FileFromMap(descriptor.AsMap()))
	}
	return files, nil
}

func decode(in *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err = json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func remoteError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Unavailable, err.Error())
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

func (s *Server) authUnary(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if err := auth.Check(firstValue(md, tokenMetadataKey), firstValue(md, queryMetadataKey)); err != nil {
		s.metrics.RecordAuthRejection(transportName)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return handler(ctx, req)
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	event := s.logger.Info()
	if err != nil {
		event = s.logger.Warn().Err(err)
	}
	event.
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("duration", time.Since(start)).
		Msg("request completed")
	return resp, err
}

// ListenAndServe serves on addr until ctx is cancelled, then stops gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := s.NewGRPCServer()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("grpc server listening")
		errCh <- srv.Serve(lis)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
		srv.GracefulStop()
		return nil
	}
}
