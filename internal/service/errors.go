package service

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/reservation-platform/internal/apperror"
)

// ErrorDomain — домен в google.rpc.ErrorInfo бизнес-ошибок.
const ErrorDomain = "reservation.v1"

var kindCodes = map[apperror.Kind]codes.Code{
	apperror.KindInvalidDateRange:    codes.InvalidArgument,
	apperror.KindInvalidRequest:      codes.InvalidArgument,
	apperror.KindCapacityExceeded:    codes.InvalidArgument,
	apperror.KindImmutableField:      codes.InvalidArgument,
	apperror.KindResourceUnavailable: codes.FailedPrecondition,
	apperror.KindInvalidTransition:   codes.FailedPrecondition,
	apperror.KindSlotNotFound:        codes.FailedPrecondition,
	apperror.KindSlotConflict:        codes.AlreadyExists,
	apperror.KindNotFound:            codes.NotFound,
	apperror.KindPermissionDenied:    codes.PermissionDenied,
}

// toStatus: бизнес-ошибка получает свой код и ErrorInfo с Kind и деталями
// (field, status, date); всё остальное — Internal.
func toStatus(err error) *status.Status {
	if s, ok := status.FromError(err); ok {
		return s
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	}

	ae, ok := apperror.As(err)
	if !ok {
		return status.New(codes.Internal, "internal error")
	}
	code, ok := kindCodes[ae.Kind]
	if !ok {
		code = codes.Unknown
	}

	st := status.New(code, ae.Error())
	info := &errdetails.ErrorInfo{
		Reason:   string(ae.Kind),
		Domain:   ErrorDomain,
		Metadata: map[string]string{},
	}
	if ae.Field != "" {
		info.Metadata["field"] = ae.Field
	}
	if ae.Status != "" {
		info.Metadata["status"] = ae.Status
	}
	if ae.Date != "" {
		info.Metadata["date"] = ae.Date
	}
	if withInfo, err := st.WithDetails(info); err == nil {
		return withInfo
	}
	return st
}

// ErrorInfoOf достаёт ErrorInfo из статуса, если он есть.
func ErrorInfoOf(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info, true
		}
	}
	return nil, false
}
