package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ttn.v1.ExtractionService"

// Messages travel as google.protobuf.Struct; the method docs list their keys.
type ExtractionServer interface {
	// Extract {content_base64, media_type?, document_id?, page?, all_pages?, store?} -> output
	Extract(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Submit {content_base64, media_type?, document_id?, page?, all_pages?} -> {document_id, queued, backend}
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetRecord {document_id} -> output
	GetRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Revalidate {document_id, fields: {name: value}} -> output
	Revalidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ExportRecords {document_id?, status?, manual_review?, limit?} -> {xlsx_base64, rows}
	ExportRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(ExtractionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExtractionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ExtractionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc registers an ExtractionServer on a grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: unaryHandler("Extract", ExtractionServer.Extract)},
		{MethodName: "Submit", Handler: unaryHandler("Submit", ExtractionServer.Submit)},
		{MethodName: "GetRecord", Handler: unaryHandler("GetRecord", ExtractionServer.GetRecord)},
		{MethodName: "Revalidate", Handler: unaryHandler("Revalidate", ExtractionServer.Revalidate)},
		{MethodName: "ExportRecords", Handler: unaryHandler("ExportRecords", ExtractionServer.ExportRecords)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ttn/v1/extraction.proto",
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls ExtractionService over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "Extract", in, opts...)
}

func (c *Client) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "Submit", in, opts...)
}

func (c *Client) GetRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetRecord", in, opts...)
}

func (c *Client) Revalidate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "Revalidate", in, opts...)
}

func (c *Client) ExportRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ExportRecords", in, opts...)
}
