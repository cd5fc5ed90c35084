package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
)

func TestUnaryTimeoutInterceptor(t *testing.T) {
	icpt := UnaryTimeoutInterceptor(time.Second)

	var deadline time.Time
	var hasDeadline bool
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		deadline, hasDeadline = ctx.Deadline()
		return nil
	}

	if err := icpt(context.Background(), "/grpc.health.v1.Health/Check", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if !hasDeadline || time.Until(deadline) > time.Second {
		t.Fatalf("expected a deadline within 1s, got %v (set=%v)", deadline, hasDeadline)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := ctx.Deadline()
	if err := icpt(ctx, "/x", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if !deadline.Equal(want) {
		t.Fatalf("existing deadline was replaced: got %v want %v", deadline, want)
	}
}
