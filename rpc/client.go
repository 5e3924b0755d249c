package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/yitech/harbinger/oracle"
)

// Client calls a remote OracleSigner service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Oracle(ctx context.Context, opts ...grpc.CallOption) (*oracle.Response, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Oracle", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	resp := new(oracle.Response)
	if err := fromStruct(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Revoke(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Revoke", &emptypb.Empty{}, out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) Info(ctx context.Context, opts ...grpc.CallOption) (*oracle.Info, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Info", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	info := new(oracle.Info)
	if err := fromStruct(out, info); err != nil {
		return nil, err
	}
	return info, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
