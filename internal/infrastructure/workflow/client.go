// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package workflow publishes start requests and status signals to the
// workflow orchestration engine over NATS.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/singleflight"
)

// ErrClientClosed is returned by calls made after Close.
var ErrClientClosed = errors.New("workflow client closed")

// defaultRequestTimeout bounds a start request when the caller's context has no deadline.
const defaultRequestTimeout = 5 * time.Second

// Conn is the part of a NATS connection the client uses.
type Conn interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
	Publish(subj string, data []byte) error
	IsConnected() bool
	Drain() error
}

// Dialer opens a new connection to the workflow engine.
type Dialer func(ctx context.Context) (Conn, error)

// NewNATSDialer returns a Dialer that opens a dedicated NATS connection.
func NewNATSDialer(cfg messaging.ConnectionConfig) Dialer {
	return func(ctx context.Context) (Conn, error) {
		conn, err := messaging.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// State is the lifecycle state of the client's connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is the process-wide handle to the workflow engine. The connection is
// opened lazily on first use; concurrent first callers share one dial.
type Client struct {
	dial           Dialer
	requestTimeout time.Duration
	group          singleflight.Group

	mu    sync.RWMutex
	conn  Conn
	state State
}

// Option configures a Client
type Option func(*Client)

// WithRequestTimeout sets the timeout for start requests without a caller deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.requestTimeout = timeout
		}
	}
}

// NewClient creates a disconnected client.
func NewClient(dial Dialer, opts ...Option) *Client {
	c := &Client{
		dial:           dial,
		requestTimeout: defaultRequestTimeout,
		state:          StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsReady reports whether the client is connected.
func (c *Client) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateConnected && c.conn != nil && c.conn.IsConnected()
}

// connection returns the shared connection, dialing it if needed.
func (c *Client) connection(ctx context.Context) (Conn, error) {
	c.mu.RLock()
	conn, state := c.conn, c.state
	c.mu.RUnlock()

	switch {
	case state == StateClosed:
		return nil, ErrClientClosed
	case conn != nil:
		return conn, nil
	}

	// the dial outlives any single caller so a cancelled request does not
	// abort the connect that other callers are waiting on
	dialCtx := context.WithoutCancel(ctx)
	result := c.group.DoChan("connect", func() (any, error) {
		c.mu.Lock()
		if c.state == StateClosed {
			c.mu.Unlock()
			return nil, ErrClientClosed
		}
		if c.conn != nil {
			conn := c.conn
			c.mu.Unlock()
			return conn, nil
		}
		c.state = StateConnecting
		c.mu.Unlock()

		conn, err := c.dial(dialCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			if c.state != StateClosed {
				c.state = StateDisconnected
			}
			return nil, err
		}
		if c.state == StateClosed {
			if drainErr := conn.Drain(); drainErr != nil {
				slog.WarnContext(dialCtx, "error draining workflow connection", logging.ErrKey, drainErr)
			}
			return nil, ErrClientClosed
		}
		c.conn = conn
		c.state = StateConnected
		slog.InfoContext(dialCtx, "workflow engine connection established")
		return conn, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			if errors.Is(res.Err, ErrClientClosed) {
				return nil, res.Err
			}
			return nil, domain.NewUnavailableError("workflow engine unavailable", res.Err)
		}
		return res.Val.(Conn), nil
	}
}

// StartWorkflow asks the engine to start a workflow. The workflow id doubles
// as the engine's idempotency key.
func (c *Client) StartWorkflow(ctx context.Context, req models.WorkflowStartRequest) (*models.WorkflowHandle, error) {
	if req.WorkflowType == "" || req.WorkflowID == "" {
		return nil, domain.NewValidationError("workflow type and id are required")
	}

	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, domain.NewInternalError("failed to marshal workflow start request", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	subject := models.WorkflowStartSubjectPrefix + req.WorkflowType
	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, domain.NewUnavailableError("workflow start request failed", err)
	}

	var reply models.WorkflowStartReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, domain.NewInternalError("invalid workflow start reply", err)
	}
	if reply.Error != "" {
		return nil, domain.NewInternalError("workflow engine rejected start: " + reply.Error)
	}

	slog.DebugContext(ctx, "workflow started",
		"workflow_type", req.WorkflowType,
		"workflow_id", req.WorkflowID,
		"run_id", reply.RunID,
	)
	return &models.WorkflowHandle{WorkflowID: req.WorkflowID, RunID: reply.RunID}, nil
}

// SignalStatus publishes the current status of an entity to its workflow.
func (c *Client) SignalStatus(ctx context.Context, signal models.WorkflowSignal) error {
	if signal.WorkflowType == "" || signal.EntityID == "" {
		return domain.NewValidationError("workflow type and entity id are required")
	}

	conn, err := c.connection(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(signal)
	if err != nil {
		return domain.NewInternalError("failed to marshal workflow signal", err)
	}

	if err := conn.Publish(models.WorkflowSignalSubjectPrefix+signal.WorkflowType, data); err != nil {
		return domain.NewUnavailableError("workflow signal publish failed", err)
	}
	return nil
}

// Close drains the connection. Later calls fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	if c.conn == nil {
		return nil
	}
	err := c.conn.Drain()
	c.conn = nil
	return err
}
