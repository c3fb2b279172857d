package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/reservation-platform/internal/apperror"
)

func TestToStatus_BusinessKinds(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{apperror.New(apperror.KindInvalidDateRange, "bad").WithField("endDate"), codes.InvalidArgument},
		{apperror.New(apperror.KindInvalidRequest, "bad"), codes.InvalidArgument},
		{apperror.New(apperror.KindCapacityExceeded, "too many"), codes.InvalidArgument},
		{apperror.New(apperror.KindImmutableField, "userId"), codes.InvalidArgument},
		{apperror.New(apperror.KindResourceUnavailable, "inactive").WithStatus("inactive"), codes.FailedPrecondition},
		{apperror.InvalidTransition("cancelled", "confirm"), codes.FailedPrecondition},
		{apperror.New(apperror.KindSlotNotFound, "gap").WithDate("2024-06-01"), codes.FailedPrecondition},
		{apperror.New(apperror.KindSlotConflict, "taken").WithDate("2024-06-01"), codes.AlreadyExists},
		{apperror.NotFound("booking", "x"), codes.NotFound},
		{apperror.New(apperror.KindPermissionDenied, "no"), codes.PermissionDenied},
	}

	for _, tc := range cases {
		got := toStatus(tc.err)
		if got.Code() != tc.code {
			t.Fatalf("%v: expected code %s, got %s", tc.err, tc.code, got.Code())
		}
		info, ok := ErrorInfoOf(got.Err())
		if !ok {
			t.Fatalf("%v: expected ErrorInfo detail", tc.err)
		}
		if info.Reason != string(apperror.KindOf(tc.err)) {
			t.Fatalf("expected reason %q, got %q", apperror.KindOf(tc.err), info.Reason)
		}
		if info.Domain != ErrorDomain {
			t.Fatalf("expected domain %q, got %q", ErrorDomain, info.Domain)
		}
	}
}

func TestToStatus_Metadata(t *testing.T) {
	err := fmt.Errorf("reserve: %w", apperror.New(apperror.KindSlotConflict, "taken").WithDate("2024-06-01"))

	info, ok := ErrorInfoOf(toStatus(err).Err())
	if !ok {
		t.Fatalf("expected ErrorInfo detail")
	}
	if info.Metadata["date"] != "2024-06-01" {
		t.Fatalf("expected date metadata, got %v", info.Metadata)
	}
	if _, ok := info.Metadata["field"]; ok {
		t.Fatalf("expected no field metadata, got %v", info.Metadata)
	}
}

func TestToStatus_InfrastructureErrorsAreInternal(t *testing.T) {
	got := toStatus(errors.New("connection reset"))
	if got.Code() != codes.Internal {
		t.Fatalf("expected Internal, got %s", got.Code())
	}
	if got.Message() != "internal error" {
		t.Fatalf("expected generic message, got %q", got.Message())
	}
}

func TestToStatus_PassThrough(t *testing.T) {
	if got := toStatus(status.Error(codes.Unauthenticated, "nope")); got.Code() != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %s", got.Code())
	}
	if got := toStatus(context.DeadlineExceeded); got.Code() != codes.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %s", got.Code())
	}
}
