package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"novelhub/internal/pipeline"
	"novelhub/pkg/models"
)

type BuildRequest struct {
	URL     string `json:"url"`
	Start   int32  `json:"start"`
	End     int32  `json:"end"`
	Refresh bool   `json:"refresh"`
}

type BuildResponse struct {
	Report *pipeline.Report `json:"report"`
}

type GetPublicationRequest struct {
	ID string `json:"id"`
}

type GetPublicationResponse struct {
	Publication *models.Publication `json:"publication"`
	Builds      []models.Build      `json:"builds"`
}

// BuildServiceServer is the server API of novelhub.BuildService.
type BuildServiceServer interface {
	Build(ctx context.Context, req *BuildRequest) (*BuildResponse, error)
	GetPublication(ctx context.Context, req *GetPublicationRequest) (*GetPublicationResponse, error)
}

const (
	serviceName          = "novelhub.BuildService"
	buildMethod          = "/" + serviceName + "/Build"
	getPublicationMethod = "/" + serviceName + "/GetPublication"
)

var BuildServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BuildServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Build", Handler: buildHandler},
		{MethodName: "GetPublication", Handler: getPublicationHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "novelhub/build_service",
}

func RegisterBuildServiceServer(s grpc.ServiceRegistrar, srv BuildServiceServer) {
	s.RegisterService(&BuildServiceDesc, srv)
}

func buildHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BuildRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BuildServiceServer).Build(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: buildMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BuildServiceServer).Build(ctx, req.(*BuildRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getPublicationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetPublicationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BuildServiceServer).GetPublication(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getPublicationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BuildServiceServer).GetPublication(ctx, req.(*GetPublicationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls novelhub.BuildService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Build(ctx context.Context, in *BuildRequest, opts ...grpc.CallOption) (*BuildResponse, error) {
	out := new(BuildResponse)
	if err := c.cc.Invoke(ctx, buildMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPublication(ctx context.Context, in *GetPublicationRequest, opts ...grpc.CallOption) (*GetPublicationResponse, error) {
	out := new(GetPublicationResponse)
	if err := c.cc.Invoke(ctx, getPublicationMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}
