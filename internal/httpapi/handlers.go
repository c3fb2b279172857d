package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/reservation-platform/internal/apperror"
	"github.com/Leganyst/reservation-platform/internal/availability"
	"github.com/Leganyst/reservation-platform/internal/calendar"
	"github.com/Leganyst/reservation-platform/internal/model"
	"github.com/Leganyst/reservation-platform/internal/reservation"
)

type bookingView struct {
	ID            string            `json:"id"`
	BookingType   model.BookingType `json:"bookingType"`
	ResourceID    string            `json:"resourceId,omitempty"`
	EventID       string            `json:"eventId,omitempty"`
	UserID        string            `json:"userId"`
	StartDate     string            `json:"startDate"`
	EndDate       string            `json:"endDate"`
	StartTime     string            `json:"startTime"`
	EndTime       string            `json:"endTime"`
	AttendeeCount int               `json:"attendeeCount"`
	TotalAmount   int64             `json:"totalAmount"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"paymentStatus"`
	PaymentID     string            `json:"paymentId,omitempty"`
	Status        string            `json:"status"`
	ContactInfo   model.ContactInfo `json:"contactInfo"`
	Notes         string            `json:"notes,omitempty"`
	CancelReason  string            `json:"cancelReason,omitempty"`
	Version       int               `json:"version"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	ConfirmedAt   *time.Time        `json:"confirmedAt,omitempty"`
	CancelledAt   *time.Time        `json:"cancelledAt,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

func newBookingView(b *model.Booking) bookingView {
	v := bookingView{
		ID:            b.ID.String(),
		BookingType:   b.BookingType,
		UserID:        b.UserID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		AttendeeCount: b.AttendeeCount,
		TotalAmount:   b.TotalAmount,
		Currency:      b.Currency,
		PaymentStatus: string(b.PaymentStatus),
		PaymentID:     b.PaymentID,
		Status:        string(b.Status),
		ContactInfo:   b.ContactInfo.Data(),
		Notes:         b.Notes,
		CancelReason:  b.CancelReason,
		Version:       b.Version,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		ConfirmedAt:   b.ConfirmedAt,
		CancelledAt:   b.CancelledAt,
		CompletedAt:   b.CompletedAt,
	}
	if b.ResourceID != nil {
		v.ResourceID = b.ResourceID.String()
	}
	if b.EventID != nil {
		v.EventID = b.EventID.String()
	}
	return v
}

type slotView struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
	BookingID string `json:"bookingId,omitempty"`
}

type dayView struct {
	Date  string     `json:"date"`
	Slots []slotView `json:"slots"`
}

func newDayView(d availability.AvailabilitySlot) dayView {
	v := dayView{Date: d.Date.String(), Slots: make([]slotView, 0, len(d.Slots))}
	for _, s := range d.Slots {
		sv := slotView{
			ID:        s.ID.String(),
			StartTime: s.Window.Start.String(),
			EndTime:   s.Window.End.String(),
			Available: s.Available,
		}
		if s.BookingID != nil {
			sv.BookingID = s.BookingID.String()
		}
		v.Slots = append(v.Slots, sv)
	}
	return v
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "id", err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /v1/bookings
func (s *Server) createBooking(c *gin.Context) {
	var in reservation.CreateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "", err)
		return
	}
	b, err := s.engine.Create(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingView(b))
}

// PATCH /v1/bookings/:id
func (s *Server) updateBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in reservation.UpdateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "", err)
		return
	}
	b, err := s.engine.Update(c.Request.Context(), id, in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingView(b))
}

func (s *Server) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*model.Booking, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := apply(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingView(b))
}

// POST /v1/bookings/:id/confirm (владелец ресурса)
func (s *Server) confirmBooking(c *gin.Context) {
	s.transition(c, s.engine.Confirm)
}

// POST /v1/bookings/:id/cancel (заявитель или владелец ресурса)
func (s *Server) cancelBooking(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "reason", err)
			return
		}
	}
	s.transition(c, func(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
		return s.engine.Cancel(ctx, id, in.Reason)
	})
}

// POST /v1/bookings/:id/complete (владелец ресурса)
func (s *Server) completeBooking(c *gin.Context) {
	s.transition(c, s.engine.Complete)
}

// GET /v1/bookings/:id
func (s *Server) getBooking(c *gin.Context) {
	s.transition(c, s.query.Get)
}

type listQuery struct {
	Status      string `form:"status"`
	BookingType string `form:"bookingType"`
	ResourceID  string `form:"resourceId"`
	EventID     string `form:"eventId"`
	UserID      string `form:"userId"`
	StartDate   string `form:"startDate"`
	EndDate     string `form:"endDate"`
	Offset      int    `form:"offset"`
	Limit       int    `form:"limit"`
}

func (q listQuery) filter() (reservation.Filter, error) {
	f := reservation.Filter{
		BookingType: model.BookingType(q.BookingType),
		UserID:      q.UserID,
		From:        q.StartDate,
		To:          q.EndDate,
		Offset:      q.Offset,
		Limit:       q.Limit,
	}
	for _, st := range strings.Split(q.Status, ",") {
		if st = strings.TrimSpace(st); st != "" {
			f.Statuses = append(f.Statuses, model.BookingStatus(st))
		}
	}
	var err error
	if f.ResourceID, err = optionalUUID("resourceId", q.ResourceID); err != nil {
		return f, err
	}
	if f.EventID, err = optionalUUID("eventId", q.EventID); err != nil {
		return f, err
	}
	return f, nil
}

func optionalUUID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidRequest, "invalid %s: %v", field, err).WithField(field)
	}
	return &id, nil
}

// GET /v1/bookings?status=pending,confirmed&resourceId=...&offset=0&limit=20
func (s *Server) listBookings(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "", err)
		return
	}
	f, err := q.filter()
	if err != nil {
		s.writeError(c, err)
		return
	}
	page, err := s.query.List(c.Request.Context(), f)
	if err != nil {
		s.writeError(c, err)
		return
	}

	items := make([]bookingView, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, newBookingView(&page.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":   items,
		"total":   page.Total,
		"offset":  page.Offset,
		"limit":   page.Limit,
		"hasNext": page.HasNext,
		"hasPrev": page.HasPrev,
		"summary": reservation.Summarize(page.Items),
	})
}

// GET /v1/bookings/stats
func (s *Server) bookingStats(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "", err)
		return
	}
	f, err := q.filter()
	if err != nil {
		s.writeError(c, err)
		return
	}
	st, err := s.query.Stats(c.Request.Context(), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /v1/resources/:id/availability?startDate=...&endDate=...
func (s *Server) getAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	days, err := s.query.Availability(c.Request.Context(), id, c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]dayView, 0, len(days))
	for _, d := range days {
		out = append(out, newDayView(d))
	}
	c.JSON(http.StatusOK, gin.H{"resourceId": id.String(), "days": out})
}

// POST /v1/resources/:id/availability (владелец ресурса)
func (s *Server) publishAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in reservation.PublishInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "", err)
		return
	}
	req, err := in.Parse()
	if err != nil {
		s.writeError(c, err)
		return
	}
	slots, err := s.engine.PublishAvailability(c.Request.Context(), id, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"published": len(slots)})
}

// DELETE /v1/resources/:id/availability?startDate=...&endDate=... (владелец ресурса)
func (s *Server) unpublishAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := calendar.ParseDateRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		s.writeError(c, apperror.New(apperror.KindInvalidDateRange, "%v", err).WithField("endDate"))
		return
	}
	n, err := s.engine.UnpublishAvailability(c.Request.Context(), id, r)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

type resourceView struct {
	ID          string               `json:"id"`
	Kind        model.ResourceKind   `json:"kind"`
	OwnerID     string               `json:"ownerId"`
	Name        string               `json:"name"`
	CapacityMin int                  `json:"capacityMin"`
	CapacityMax int                  `json:"capacityMax"`
	Status      model.ResourceStatus `json:"status"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func newResourceView(r *model.Resource) resourceView {
	return resourceView{
		ID:          r.ID.String(),
		Kind:        r.Kind,
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		CapacityMin: r.CapacityMin,
		CapacityMax: r.CapacityMax,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

// POST /v1/resources
func (s *Server) registerResource(c *gin.Context) {
	var in reservation.RegisterResourceRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "", err)
		return
	}
	res, err := s.catalog.Register(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newResourceView(res))
}

// GET /v1/resources?offset=0&limit=20 — ресурсы текущего пользователя.
func (s *Server) myResources(c *gin.Context) {
	var q struct {
		Offset int `form:"offset"`
		Limit  int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "", err)
		return
	}
	page, err := s.catalog.Mine(c.Request.Context(), q.Offset, q.Limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	items := make([]resourceView, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, newResourceView(&page.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":   items,
		"total":   page.Total,
		"offset":  page.Offset,
		"limit":   page.Limit,
		"hasNext": page.HasNext,
		"hasPrev": page.HasPrev,
	})
}

// PUT /v1/resources/:id/status (владелец ресурса)
func (s *Server) setResourceStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in struct {
		Status model.ResourceStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "status", err)
		return
	}
	res, err := s.catalog.SetStatus(c.Request.Context(), id, in.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newResourceView(res))
}

// GET /v1/resources/:id/schedules (владелец ресурса)
func (s *Server) resourceSchedules(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	schedules, err := s.catalog.Schedules(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(schedules))
	for _, sc := range schedules {
		out = append(out, gin.H{
			"id":        sc.ID.String(),
			"startDate": sc.StartDate,
			"endDate":   sc.EndDate,
			"rule":      sc.Rule.Data(),
			"createdAt": sc.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"resourceId": id.String(), "schedules": out})
}
