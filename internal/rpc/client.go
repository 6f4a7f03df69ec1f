package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/loop-governor/go-controller/internal/governor"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/memory"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/pessimist"
	"github.com/danielpatrickdp/loop-governor/go-controller/internal/sanity"
)

// #region client-struct
// Client calls a remote governance service.
type Client struct {
	conn   *grpc.ClientConn
	invoke grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the governance service at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, invoke: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close is a no-op for
// connections the client does not own.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{invoke: cc}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region calls
func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}
	if err := c.invoke.Invoke(ctx, method, in, out); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return fromStruct(out, resp)
}

// ComposeReport scores a finished loop on the remote governor.
func (c *Client) ComposeReport(ctx context.Context, req governor.ReportRequest) (governor.ReportResponse, error) {
	var resp governor.ReportResponse
	err := c.call(ctx, MethodComposeReport, req, &resp)
	return resp, err
}

// ValidateStructure checks a loop definition before it runs.
func (c *Client) ValidateStructure(ctx context.Context, req governor.StructureRequest) (sanity.Result, error) {
	var res sanity.Result
	err := c.call(ctx, MethodValidateStructure, req, &res)
	return res, err
}

// EvaluateRisk evaluates a loop plan before it runs.
func (c *Client) EvaluateRisk(ctx context.Context, req governor.RiskRequest) (pessimist.Result, error) {
	var res pessimist.Result
	err := c.call(ctx, MethodEvaluateRisk, req, &res)
	return res, err
}

// RecordCEO, RecordHistorian and RecordPessimist share the RecordSignal RPC.
func (c *Client) RecordCEO(ctx context.Context, r memory.CEOReview) (memory.CEOReview, error) {
	var out memory.CEOReview
	err := c.call(ctx, MethodRecordSignal, signal{memory.KindCEOReview, r}, &out)
	return out, err
}

// RecordHistorian stores a belief alignment review.
func (c *Client) RecordHistorian(ctx context.Context, r memory.HistorianReview) (memory.HistorianReview, error) {
	var out memory.HistorianReview
	err := c.call(ctx, MethodRecordSignal, signal{memory.KindHistorianReview, r}, &out)
	return out, err
}

// RecordPessimist stores the bias tags raised for a loop.
func (c *Client) RecordPessimist(ctx context.Context, r memory.PessimistReview) (memory.PessimistReview, error) {
	var out memory.PessimistReview
	err := c.call(ctx, MethodRecordSignal, signal{memory.KindPessimistReview, r}, &out)
	return out, err
}

// GenerateDrift aggregates the stored signals of a loop.
func (c *Client) GenerateDrift(ctx context.Context, req governor.DriftRequest) (governor.DriftResponse, error) {
	var resp governor.DriftResponse
	err := c.call(ctx, MethodGenerateDrift, req, &resp)
	return resp, err
}

// Healthy reports whether the remote governance service is serving.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.invoke).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, fmt.Errorf("health check: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// #endregion calls

// signal flattens a signal record and its kind into one JSON object.
type signal struct {
	kind   string
	record any
}

// MarshalJSON merges the kind field into the record object.
func (s signal) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	if err := fromJSON(s.record, &fields); err != nil {
		return nil, err
	}
	fields["kind"] = s.kind
	return json.Marshal(fields)
}
