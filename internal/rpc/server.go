package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/governor"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
)

// #region server
// Server exposes a Governor over gRPC.
type Server struct {
	gov    *governor.Governor
	logger *slog.Logger
}

// NewServer wraps gov. A nil logger uses slog.Default().
func NewServer(gov *governor.Governor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{gov: gov, logger: logger}
}

// GRPCServer builds a grpc.Server with the governance and health services
// registered.
func (s *Server) GRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.logCalls))
	gs := grpc.NewServer(opts...)
	RegisterGovernorServer(gs, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

// Serve runs until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	gs := s.GRPCServer()
	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()
	s.logger.Info("[RPC] serving", "addr", lis.Addr().String(), "service", ServiceName)

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

func (s *Server) logCalls(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	s.logger.Debug("[RPC] call", "method", info.FullMethod, "code", status.Code(err).String(), "elapsed", time.Since(start))
	return resp, err
}

// #endregion server

// #region methods
// ComposeReport handles the ComposeReport RPC.
func (s *Server) ComposeReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req governor.ReportRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := s.gov.ComposeReport(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, req.Loop.ID, req.ProjectID, governor.OpComposeReport, err)
	}
	return s.reply(resp)
}

// ValidateStructure handles the ValidateStructure RPC.
func (s *Server) ValidateStructure(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req governor.StructureRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.gov.ValidateStructure(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, req.LoopID, req.ProjectID, governor.OpValidateStructure, err)
	}
	return s.reply(res)
}

// EvaluateRisk handles the EvaluateRisk RPC.
func (s *Server) EvaluateRisk(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req governor.RiskRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.gov.EvaluateRisk(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, req.LoopID, req.ProjectID, governor.OpEvaluateRisk, err)
	}
	return s.reply(res)
}

// SignalEnvelope selects the signal type carried by a RecordSignal request.
type SignalEnvelope struct {
	Kind   string `json:"kind"`
	LoopID string `json:"loop_id"`
}

// RecordSignal stores a CEO, historian or pessimist review selected by its kind field.
func (s *Server) RecordSignal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var env SignalEnvelope
	if err := fromStruct(in, &env); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var out any
	var err error
	switch env.Kind {
	case memory.KindCEOReview:
		var r memory.CEOReview
		if err = fromStruct(in, &r); err == nil {
			out, err = s.gov.RecordCEO(ctx, r)
		}
	case memory.KindHistorianReview:
		var r memory.HistorianReview
		if err = fromStruct(in, &r); err == nil {
			out, err = s.gov.RecordHistorian(ctx, r)
		}
	case memory.KindPessimistReview:
		var r memory.PessimistReview
		if err = fromStruct(in, &r); err == nil {
			out, err = s.gov.RecordPessimist(ctx, r)
		}
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown signal kind %q", env.Kind)
	}
	if err != nil {
		return nil, s.fail(ctx, env.LoopID, "", governor.OpRecordSignal, err)
	}
	return s.reply(out)
}

// GenerateDrift handles the GenerateDrift RPC.
func (s *Server) GenerateDrift(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req governor.DriftRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := s.gov.GenerateDrift(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, req.LoopID, "", governor.OpGenerateDrift, err)
	}
	return s.reply(resp)
}

// #endregion methods

// #region helpers
// fail maps governor errors to gRPC status. Invalid requests are reported
// as InvalidArgument; anything else is stored as an error record.
func (s *Server) fail(ctx context.Context, loopID, projectID, op string, err error) error {
	if errors.Is(err, governor.ErrInvalidRequest) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if ctx.Err() != nil {
		return status.FromContextError(ctx.Err()).Err()
	}
	rec := s.gov.RecordError(context.WithoutCancel(ctx), loopID, projectID, op, err)
	return status.Errorf(codes.Internal, "%s failed (error_id=%s): %v", op, rec.ErrorID, err)
}

func (s *Server) reply(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// #endregion helpers
