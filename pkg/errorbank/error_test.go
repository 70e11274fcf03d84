package errorbank

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKindMappings(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("x"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("x"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("x"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("x"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Unavailable("x"), http.StatusServiceUnavailable, codes.Unavailable},
		{Internal("x"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		if got := tc.err.StatusCode(); got != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.err.Kind(), got, tc.status)
		}
		if got := tc.err.GRPCCode(); got != tc.code {
			t.Errorf("%s: code = %v, want %v", tc.err.Kind(), got, tc.code)
		}
	}
}

func TestCauseAndDetails(t *testing.T) {
	cause := errors.New("unique violation")
	err := Conflict("order number taken", WithCause(cause), WithDetail("order_number", int64(100001)))

	if !errors.Is(err, cause) {
		t.Fatal("expected cause to unwrap")
	}
	if err.Details()["order_number"] != int64(100001) {
		t.Fatalf("details = %v", err.Details())
	}
	if err.Error() != "order number taken: unique violation" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestFromAndIsKind(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", NotFound("purchase not found"))

	if got := From(wrapped); got.Kind() != KindNotFound {
		t.Fatalf("From kind = %s", got.Kind())
	}
	if !IsKind(wrapped, KindNotFound) {
		t.Fatal("IsKind should see through wrapping")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Fatal("plain errors carry no kind")
	}
	if got := From(errors.New("boom")); got.Kind() != KindInternal {
		t.Fatalf("unexpected kind for plain error: %s", got.Kind())
	}
	if From(nil) != nil {
		t.Fatal("From(nil) should be nil")
	}
}

func TestNilAppError(t *testing.T) {
	var err *AppError
	if err.Kind() != KindInternal || err.StatusCode() != http.StatusInternalServerError {
		t.Fatal("nil AppError should behave as internal")
	}
}

func TestGRPCStatus(t *testing.T) {
	st, ok := status.FromError(NotFound("purchase not found"))
	if !ok || st.Code() != codes.NotFound || st.Message() != "purchase not found" {
		t.Fatalf("status = %v ok=%v", st, ok)
	}

	st, ok = status.FromError(fmt.Errorf("lookup: %w", Conflict("order number taken")))
	if !ok || st.Code() != codes.AlreadyExists {
		t.Fatalf("wrapped status = %v ok=%v", st, ok)
	}

	st = Internal("insert failed", WithCause(errors.New("dial tcp 10.0.0.5:5432"))).GRPCStatus()
	if st.Code() != codes.Internal || st.Message() != "insert failed" {
		t.Fatalf("internal status = %v", st)
	}
}

func TestFromContextErrors(t *testing.T) {
	err := From(fmt.Errorf("lookup: %w", context.DeadlineExceeded))
	if err.Kind() != KindUnavailable || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("kind = %s", err.Kind())
	}
}

func TestUnknownKindFallsBackToInternal(t *testing.T) {
	err := New(Kind("teapot"), "")
	if err.StatusCode() != http.StatusInternalServerError || err.Message() != "teapot" {
		t.Fatalf("status = %d message = %q", err.StatusCode(), err.Message())
	}
}
