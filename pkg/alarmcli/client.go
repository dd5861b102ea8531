package alarmcli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
)

// ErrClosed is reported by a client whose connection ended without error.
var ErrClosed = errors.New("connection closed")

// maxMessageSize bounds one inbound push.
const maxMessageSize = 1 << 20

// Client is one authenticated JSON-RPC session with the daemon.
type Client struct {
	conn   *cws.Conn
	rpc    *jrpc2.Client
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Dial connects to the daemon at u and authenticates with secret. Pushes
// are handed to d.
func Dial(ctx context.Context, u *DaemonURI, secret string, d *Dispatcher) (*Client, error) {
	conn, _, err := cws.Dial(ctx, u.WSURL(), &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + secret}},
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to daemon: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	if d == nil {
		d = NewDispatcher(nil)
	}
	chCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.rpc = jrpc2.NewClient(&wsChannel{conn: conn, ctx: chCtx}, &jrpc2.ClientOptions{
		OnNotify: d.process,
		OnStop:   c.onStop,
	})
	return c, nil
}

func (c *Client) onStop(_ *jrpc2.Client, err error) {
	c.mu.Lock()
	if err == nil {
		err = ErrClosed
	}
	c.err = err
	c.mu.Unlock()
	c.cancel()
	close(c.done)
}

// UpdateAlarms replaces the daemon's replica with alarms.
func (c *Client) UpdateAlarms(ctx context.Context, alarms []*alarmlib.Alarm) error {
	if alarms == nil {
		alarms = []*alarmlib.Alarm{}
	}
	var res common.EmptyResult
	err := c.rpc.CallResult(ctx, string(common.UPDATE_ALARMS), &common.UpdateAlarmsParams{Alarms: alarms}, &res)
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %w", common.UPDATE_ALARMS, err)
	}
	return nil
}

// Done is closed once the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection ended. It is nil while connected.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close ends the session.
func (c *Client) Close() error {
	err := c.rpc.Close()
	c.cancel()
	return err
}

// wsChannel adapts a coder/websocket.Conn to the jrpc2 Channel interface.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
