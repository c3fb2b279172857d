package reservationv1

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "reservation.v1.ReservationService"

type ReservationServiceServer interface {
	CreateBooking(context.Context, *CreateBookingRequest) (*BookingResponse, error)
	UpdateBooking(context.Context, *UpdateBookingRequest) (*BookingResponse, error)
	ConfirmBooking(context.Context, *ConfirmBookingRequest) (*BookingResponse, error)
	CancelBooking(context.Context, *CancelBookingRequest) (*BookingResponse, error)
	CompleteBooking(context.Context, *CompleteBookingRequest) (*BookingResponse, error)
	GetBooking(context.Context, *GetBookingRequest) (*BookingResponse, error)
	ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	BookingStats(context.Context, *BookingStatsRequest) (*BookingStatsResponse, error)
	GetAvailability(context.Context, *GetAvailabilityRequest) (*GetAvailabilityResponse, error)
	PublishAvailability(context.Context, *PublishAvailabilityRequest) (*PublishAvailabilityResponse, error)
}

func unary[Req, Resp any](
	method string,
	call func(ReservationServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReservationServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ReservationServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ReservationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateBooking", ReservationServiceServer.CreateBooking),
		unary("UpdateBooking", ReservationServiceServer.UpdateBooking),
		unary("ConfirmBooking", ReservationServiceServer.ConfirmBooking),
		unary("CancelBooking", ReservationServiceServer.CancelBooking),
		unary("CompleteBooking", ReservationServiceServer.CompleteBooking),
		unary("GetBooking", ReservationServiceServer.GetBooking),
		unary("ListBookings", ReservationServiceServer.ListBookings),
		unary("BookingStats", ReservationServiceServer.BookingStats),
		unary("GetAvailability", ReservationServiceServer.GetAvailability),
		unary("PublishAvailability", ReservationServiceServer.PublishAvailability),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reservation/v1/reservation.proto",
}

func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&ReservationService_ServiceDesc, srv)
}

// ReservationServiceClient — клиент сервиса; все вызовы идут с JSON-кодеком.
type ReservationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReservationServiceClient(cc grpc.ClientConnInterface) *ReservationServiceClient {
	return &ReservationServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationServiceClient) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "CreateBooking", in, opts)
}

func (c *ReservationServiceClient) UpdateBooking(ctx context.Context, in *UpdateBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "UpdateBooking", in, opts)
}

func (c *ReservationServiceClient) ConfirmBooking(ctx context.Context, in *ConfirmBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "ConfirmBooking", in, opts)
}

func (c *ReservationServiceClient) CancelBooking(ctx context.Context, in *CancelBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "CancelBooking", in, opts)
}

func (c *ReservationServiceClient) CompleteBooking(ctx context.Context, in *CompleteBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "CompleteBooking", in, opts)
}

func (c *ReservationServiceClient) GetBooking(ctx context.Context, in *GetBookingRequest, opts ...grpc.CallOption) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "GetBooking", in, opts)
}

func (c *ReservationServiceClient) ListBookings(ctx context.Context, in *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, "ListBookings", in, opts)
}

func (c *ReservationServiceClient) BookingStats(ctx context.Context, in *BookingStatsRequest, opts ...grpc.CallOption) (*BookingStatsResponse, error) {
	return invoke[BookingStatsResponse](ctx, c.cc, "BookingStats", in, opts)
}

func (c *ReservationServiceClient) GetAvailability(ctx context.Context, in *GetAvailabilityRequest, opts ...grpc.CallOption) (*GetAvailabilityResponse, error) {
	return invoke[GetAvailabilityResponse](ctx, c.cc, "GetAvailability", in, opts)
}

func (c *ReservationServiceClient) PublishAvailability(ctx context.Context, in *PublishAvailabilityRequest, opts ...grpc.CallOption) (*PublishAvailabilityResponse, error) {
	return invoke[PublishAvailabilityResponse](ctx, c.cc, "PublishAvailability", in, opts)
}
