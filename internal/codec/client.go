package codec

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

// GenerateMethod is the full gRPC method name of the generation backend.
const GenerateMethod = "/goldengate.v1.Generator/Generate"

// #region client-struct
// Client calls the generation backend over gRPC. It implements
// runner.Generator and is safe for concurrent use.
type Client struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	limiter *rate.Limiter
}

var _ runner.Generator = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithRateLimit caps calls per second across all workers. A non-positive
// rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// #endregion client-struct

// #region constructor
// NewClient connects to the generation backend.
func NewClient(addr string, opts ...Option) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	c := NewClientWithConn(conn, opts...)
	c.conn = conn
	return c, nil
}

// NewClientWithConn creates a Client over an existing connection. The caller
// keeps ownership of cc.
func NewClientWithConn(cc grpc.ClientConnInterface, opts ...Option) *Client {
	c := &Client{cc: cc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region generate
// Generate sends one case input to the backend and returns its prediction.
// Unavailable, DeadlineExceeded, ResourceExhausted and Aborted are transient.
func (c *Client) Generate(ctx context.Context, input string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, GenerateMethod, wrapperspb.String(input), out); err != nil {
		return "", classify(err)
	}
	return out.GetValue(), nil
}

func classify(err error) error {
	wrapped := fmt.Errorf("generate rpc: %w", err)
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return apperr.NewTransientError(wrapped)
	default:
		return wrapped
	}
}

// #endregion generate
