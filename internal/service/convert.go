package service

import (
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	reservationpb "github.com/Leganyst/reservation-platform/internal/api/reservation/v1"
	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/reservation"
)

func createRequestFromPB(req *reservationpb.CreateBookingRequest) (reservation.CreateRequest, error) {
	resourceID, err := parseOptionalID("resource_id", req.ResourceId)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	eventID, err := parseOptionalID("event_id", req.EventId)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	return reservation.CreateRequest{
		BookingType:   model.BookingType(req.BookingType),
		ResourceID:    resourceID,
		EventID:       eventID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		AttendeeCount: int(req.AttendeeCount),
		TotalAmount:   req.TotalAmount,
		Currency:      req.Currency,
		Contact:       contactFromPB(req.ContactInfo),
		Notes:         req.Notes,
	}, nil
}

func updateRequestFromPB(req *reservationpb.UpdateBookingRequest) reservation.UpdateRequest {
	out := reservation.UpdateRequest{
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		TotalAmount:     req.TotalAmount,
		Notes:           req.Notes,
		ExpectedVersion: int(req.ExpectedVersion),
	}
	if req.AttendeeCount != nil {
		n := int(*req.AttendeeCount)
		out.AttendeeCount = &n
	}
	if req.ContactInfo != nil {
		c := contactFromPB(req.ContactInfo)
		out.Contact = &c
	}
	return out
}

func contactFromPB(c *reservationpb.ContactInfo) reservation.Contact {
	if c == nil {
		return reservation.Contact{}
	}
	return reservation.Contact{Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func filterFromPB(f *reservationpb.BookingFilter) (reservation.Filter, error) {
	if f == nil {
		return reservation.Filter{}, nil
	}
	resourceID, err := parseOptionalID("resource_id", f.ResourceId)
	if err != nil {
		return reservation.Filter{}, err
	}
	eventID, err := parseOptionalID("event_id", f.EventId)
	if err != nil {
		return reservation.Filter{}, err
	}
	out := reservation.Filter{
		BookingType: model.BookingType(f.BookingType),
		ResourceID:  resourceID,
		EventID:     eventID,
		UserID:      f.UserId,
		From:        f.StartDate,
		To:          f.EndDate,
	}
	for _, s := range f.Status {
		out.Statuses = append(out.Statuses, model.BookingStatus(s))
	}
	return out, nil
}

func publishRequestFromPB(req *reservationpb.PublishAvailabilityRequest) (availability.PublishRequest, error) {
	in := reservation.PublishInput{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SlotMinutes: int(req.SlotMinutes),
		Interval:    int(req.Interval),
		ExceptDates: req.ExceptDates,
	}
	for _, d := range req.Weekdays {
		in.Weekdays = append(in.Weekdays, int(d))
	}
	return in.Parse()
}

func bookingToPB(b *model.Booking) *reservationpb.Booking {
	c := b.ContactInfo.Data()
	out := &reservationpb.Booking{
		Id:            b.ID.String(),
		BookingType:   string(b.BookingType),
		UserId:        b.UserID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		AttendeeCount: int32(b.AttendeeCount),
		TotalAmount:   b.TotalAmount,
		Currency:      b.Currency,
		PaymentStatus: string(b.PaymentStatus),
		PaymentId:     b.PaymentID,
		Status:        string(b.Status),
		ContactInfo:   &reservationpb.ContactInfo{Name: c.Name, Email: c.Email, Phone: c.Phone},
		Notes:         b.Notes,
		CancelReason:  b.CancelReason,
		Version:       int32(b.Version),
		CreatedAt:     timestamppb.New(b.CreatedAt),
		UpdatedAt:     timestamppb.New(b.UpdatedAt),
		ConfirmedAt:   optionalTimestamp(b.ConfirmedAt),
		CancelledAt:   optionalTimestamp(b.CancelledAt),
		CompletedAt:   optionalTimestamp(b.CompletedAt),
	}
	if b.ResourceID != nil {
		out.ResourceId = b.ResourceID.String()
	}
	if b.EventID != nil {
		out.EventId = b.EventID.String()
	}
	return out
}

func optionalTimestamp(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return timestamppb.New(*t)
}

func availabilityToPB(d availability.AvailabilitySlot) *reservationpb.AvailabilityDay {
	day := &reservationpb.AvailabilityDay{
		Date:  d.Date.String(),
		Slots: make([]*reservationpb.TimeSlot, 0, len(d.Slots)),
	}
	for _, s := range d.Slots {
		slot := &reservationpb.TimeSlot{
			Id:        s.ID.String(),
			StartTime: s.Window.Start.String(),
			EndTime:   s.Window.End.String(),
			Available: s.Available,
		}
		if s.BookingID != nil {
			slot.BookingId = s.BookingID.String()
		}
		day.Slots = append(day.Slots, slot)
	}
	return day
}
