package grpc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestServer() *GRPCServer {
	return NewGRPCServer("", nopLogger{}, nil, time.Hour)
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
}

func TestLoggingInterceptor_MapsErrors(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Service/M"}

	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("x: %w", common.ErrorNotFound), codes.NotFound},
		{fmt.Errorf("x: %w", common.ErrorForbidden), codes.PermissionDenied},
		{fmt.Errorf("x: %w", common.ErrorInvalidInput), codes.InvalidArgument},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{fmt.Errorf("x: %w", common.ErrorAlreadyExists), codes.AlreadyExists},
		{fmt.Errorf("x: %w", common.ErrorStoreUnavailable), codes.Unavailable},
		{fmt.Errorf("x: %w: %w", common.ErrorIndeterminate, common.ErrorStoreUnavailable), codes.Unavailable},
		{fmt.Errorf("x: %w", common.ErrorInconsistentState), codes.Aborted},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{status.Error(codes.ResourceExhausted, "slow down"), codes.ResourceExhausted},
		{fmt.Errorf("driver: secret detail"), codes.Internal},
	}

	for _, tt := range tests {
		h := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, tt.err }
		_, err := s.loggingInterceptor(context.Background(), nil, info, h)
		if got := status.Code(err); got != tt.code {
			t.Errorf("%v: code = %v, want %v", tt.err, got, tt.code)
		}
	}
}

func TestLoggingInterceptor_HidesDetails(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Service/M"}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, fmt.Errorf("dial tcp 10.0.0.5:5432: %w", common.ErrorStoreUnavailable)
	}

	_, err := s.loggingInterceptor(context.Background(), nil, info, h)
	st, _ := status.FromError(err)
	if st.Message() != common.ErrorStoreUnavailable.Error() {
		t.Fatalf("message leaked details: %q", st.Message())
	}
}

func TestRecoveryInterceptor_ConvertsPanic(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Service/Boom"}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	}

	resp, err := s.recoveryInterceptor(context.Background(), nil, info, h)
	if resp != nil {
		t.Fatalf("expected nil resp, got %v", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}
