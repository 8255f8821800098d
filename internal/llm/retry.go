package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// retryingClient retries a transient failure once after a short pause
type retryingClient struct {
	base   Client
	delay  time.Duration
	logger *zap.Logger
}

// NewRetryingClient wraps base so that one transient failure per call is retried after delay.
func NewRetryingClient(base Client, delay time.Duration, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryingClient{base: base, delay: delay, logger: logger}
}

func (r *retryingClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, tier, func() (string, error) { return r.base.GenerateContent(ctx, prompt, tier) })
}

func (r *retryingClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, tier, func() (string, error) { return r.base.GenerateJSON(ctx, prompt, tier) })
}

func (r *retryingClient) GetModel(tier ModelTier) string {
	return r.base.GetModel(tier)
}

func (r *retryingClient) Close() error {
	return r.base.Close()
}

func (r *retryingClient) do(ctx context.Context, tier ModelTier, call func() (string, error)) (string, error) {
	resp, err := call()
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return resp, err
	}

	r.logger.Warn("llm call failed, retrying",
		zap.String("model", r.base.GetModel(tier)),
		zap.Duration("delay", r.delay),
		zap.Error(err),
	)
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return call()
}

// IsTransient reports whether err is worth retrying: timeouts, throttling, upstream 5xx
// and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal, codes.Aborted:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection reset",
		"connection refused",
		"connection closed",
		"broken pipe",
		"tls handshake timeout",
		"unexpected eof",
		"timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
