package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	reservationpb "github.com/Leganyst/reservation-platform/internal/api/reservation/v1"
	"github.com/Leganyst/reservation-platform/internal/reservation"
)

// ReservationService — gRPC-фасад над ядром бронирования. Вся бизнес-логика
// живёт в reservation; здесь только разбор запросов и маппинг ошибок.
type ReservationService struct {
	engine *reservation.Engine
	query  *reservation.Query
	log    logrus.FieldLogger
}

var _ reservationpb.ReservationServiceServer = (*ReservationService)(nil)

func NewReservationService(
	engine *reservation.Engine,
	query *reservation.Query,
	log logrus.FieldLogger,
) *ReservationService {
	return &ReservationService{
		engine: engine,
		query:  query,
		log:    log,
	}
}

func (s *ReservationService) CreateBooking(
	ctx context.Context,
	req *reservationpb.CreateBookingRequest,
) (*reservationpb.BookingResponse, error) {
	in, err := createRequestFromPB(req)
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Create(ctx, in)
	if err != nil {
		return nil, s.fail("create booking", err)
	}
	return &reservationpb.BookingResponse{Booking: bookingToPB(b)}, nil
}

func (s *ReservationService) UpdateBooking(
	ctx context.Context,
	req *reservationpb.UpdateBookingRequest,
) (*reservationpb.BookingResponse, error) {
	id, err := parseID("booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Update(ctx, id, updateRequestFromPB(req))
	if err != nil {
		return nil, s.fail("update booking", err)
	}
	return &reservationpb.BookingResponse{Booking: bookingToPB(b)}, nil
}

func (s *ReservationService) ConfirmBooking(
	ctx context.Context,
	req *reservationpb.ConfirmBookingRequest,
) (*reservationpb.BookingResponse, error) {
	id, err := parseID("booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Confirm(ctx, id)
	if err != nil {
		return nil, s.fail("confirm booking", err)
	}
	return &reservationpb.BookingResponse{Booking: bookingToPB(b)}, nil
}

func (s *ReservationService) CancelBooking(
	ctx context.Context,
	req *reservationpb.CancelBookingRequest,
) (*reservationpb.BookingResponse, error) {
	id, err := parseID("booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Cancel(ctx, id, req.Reason)
	if err != nil {
		return nil, s.fail("cancel booking", err)
	}
	return &reservationpb.BookingResponse{Booking: bookingToPB(b)}, nil
}

func (s *ReservationService) CompleteBooking(
	ctx context.Context,
	req *reservationpb.CompleteBookingRequest,
) (*reservationpb.BookingResponse, error) {
	id, err := parseID("booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Complete(ctx, id)
	if err != nil {
		return nil, s.fail("complete booking", err)
	}
	return &reservationpb.BookingResponse{Booking: bookingToPB(b)}, nil
}

func (s *ReservationService) GetBooking(
	ctx context.Context,
	req *reservationpb.GetBookingRequest,
) (*reservationpb.BookingResponse, error) {
	id, err := parseID("booking_id", req.BookingId)
	if err != nil {
		return nil, err
	}
	b, err := s.query.Get(ctx, id)
	if err != nil {
		return nil, s.fail("get booking", err)
	}
	return &reservationpb.BookingResponse{Booking: bookingToPB(b)}, nil
}

func (s *ReservationService) ListBookings(
	ctx context.Context,
	req *reservationpb.ListBookingsRequest,
) (*reservationpb.ListBookingsResponse, error) {
	f, err := filterFromPB(req.Filter)
	if err != nil {
		return nil, err
	}
	f.Offset = int(req.Offset)
	f.Limit = int(req.Limit)

	page, err := s.query.List(ctx, f)
	if err != nil {
		return nil, s.fail("list bookings", err)
	}

	resp := &reservationpb.ListBookingsResponse{
		Bookings:   make([]*reservationpb.Booking, 0, len(page.Items)),
		TotalCount: page.Total,
		Offset:     int32(page.Offset),
		Limit:      int32(page.Limit),
	}
	for i := range page.Items {
		resp.Bookings = append(resp.Bookings, bookingToPB(&page.Items[i]))
	}
	return resp, nil
}

func (s *ReservationService) BookingStats(
	ctx context.Context,
	req *reservationpb.BookingStatsRequest,
) (*reservationpb.BookingStatsResponse, error) {
	f, err := filterFromPB(req.Filter)
	if err != nil {
		return nil, err
	}
	st, err := s.query.Stats(ctx, f)
	if err != nil {
		return nil, s.fail("booking stats", err)
	}

	resp := &reservationpb.BookingStatsResponse{
		Total:                  st.Total,
		ByStatus:               make(map[string]int64, len(st.ByStatus)),
		NonCancelledAmount:     st.NonCancelledAmount,
		NonCancelledByCurrency: st.ByCurrency,
	}
	for k, v := range st.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	return resp, nil
}

func (s *ReservationService) GetAvailability(
	ctx context.Context,
	req *reservationpb.GetAvailabilityRequest,
) (*reservationpb.GetAvailabilityResponse, error) {
	resourceID, err := parseID("resource_id", req.ResourceId)
	if err != nil {
		return nil, err
	}
	days, err := s.query.Availability(ctx, resourceID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, s.fail("get availability", err)
	}

	resp := &reservationpb.GetAvailabilityResponse{
		ResourceId: resourceID.String(),
		Days:       make([]*reservationpb.AvailabilityDay, 0, len(days)),
	}
	for _, d := range days {
		resp.Days = append(resp.Days, availabilityToPB(d))
	}
	return resp, nil
}

func (s *ReservationService) PublishAvailability(
	ctx context.Context,
	req *reservationpb.PublishAvailabilityRequest,
) (*reservationpb.PublishAvailabilityResponse, error) {
	resourceID, err := parseID("resource_id", req.ResourceId)
	if err != nil {
		return nil, err
	}
	pr, err := publishRequestFromPB(req)
	if err != nil {
		return nil, s.fail("publish availability", err)
	}
	slots, err := s.engine.PublishAvailability(ctx, resourceID, pr)
	if err != nil {
		return nil, s.fail("publish availability", err)
	}
	return &reservationpb.PublishAvailabilityResponse{Published: int32(len(slots))}, nil
}

// fail переводит ошибку ядра в gRPC-статус; инфраструктурные ошибки логируются.
func (s *ReservationService) fail(op string, err error) error {
	st := toStatus(err)
	if st.Code() == codes.Internal {
		s.log.WithError(err).Error(op)
	}
	return st.Err()
}

func parseID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
