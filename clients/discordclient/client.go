// Package discordclient talks to the Discord desktop client over its local IPC
// socket and implements presence.Client.
//
// Only the calls needed for rich presence are supported: the handshake,
// SET_ACTIVITY and closing the connection. Discord listens on a unix socket
// named discord-ipc-N (N from 0 to 9) in the runtime or temp directory.
package discordclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/presenced/presence"
)

const (
	// DefaultTimeout bounds every exchange with Discord.
	DefaultTimeout = 5 * time.Second

	socketPrefix = "discord-ipc-"
	socketCount  = 10
)

// DialFunc opens a connection to the socket at path.
type DialFunc func(path string, timeout time.Duration) (net.Conn, error)

func dialUnix(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

// Client is a single Discord IPC connection. It is not safe for concurrent use.
type Client struct {
	appID   uint64
	logger  *slog.Logger
	dial    DialFunc
	dirs    []string
	timeout time.Duration
	pid     int
	nonce   func() string

	conn net.Conn
	path string
}

var _ presence.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDialer replaces the unix socket dialer.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// WithTimeout sets the deadline applied to each exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithSocketDirs replaces the directories searched for discord-ipc sockets.
func WithSocketDirs(dirs ...string) Option {
	return func(c *Client) {
		c.dirs = dirs
	}
}

// New creates a Client for the Discord application appID. No connection is
// made until Connect.
func New(appID uint64, opts ...Option) *Client {
	c := &Client{
		appID:   appID,
		logger:  slog.Default(),
		dial:    dialUnix,
		dirs:    DefaultSocketDirs(),
		timeout: DefaultTimeout,
		pid:     os.Getpid(),
		nonce:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultSocketDirs lists the directories Discord may place its socket in,
// including the flatpak and snap sandboxes.
func DefaultSocketDirs() []string {
	var bases []string
	for _, name := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(name); dir != "" {
			bases = append(bases, dir)
		}
	}
	bases = append(bases, "/tmp")

	seen := make(map[string]bool)
	var dirs []string
	for _, base := range bases {
		for _, dir := range []string{
			base,
			filepath.Join(base, "app", "com.discordapp.Discord"),
			filepath.Join(base, "snap.discord"),
		} {
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// Connect opens the first available socket and performs the handshake.
func (c *Client) Connect() error {
	if c.conn != nil {
		return ErrAlreadyConnected
	}

	conn, path, err := c.dialAny()
	if err != nil {
		return err
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.path = path
	c.logger.Debug("discord ipc connected", "socket", path, "app_id", c.appID)
	return nil
}

func (c *Client) dialAny() (net.Conn, string, error) {
	var errs []error
	for _, dir := range c.dirs {
		for i := 0; i < socketCount; i++ {
			path := filepath.Join(dir, socketPrefix+strconv.Itoa(i))
			conn, err := c.dial(path, c.timeout)
			if err == nil {
				return conn, path, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return nil, "", errors.Join(append([]error{ErrNoSocket}, errs...)...)
	}
	return nil, "", ErrNoSocket
}

func (c *Client) handshake(conn net.Conn) error {
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("setting handshake deadline: %w", err)
	}

	err := writeFrame(conn, opHandshake, handshake{
		Version:  1,
		ClientID: strconv.FormatUint(c.appID, 10),
	})
	if err != nil {
		return err
	}

	op, payload, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("reading handshake reply: %w", err)
	}

	switch op {
	case opFrame:
		var resp response
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("decoding handshake reply: %w", err)
		}
		if resp.Cmd != cmdDispatch || resp.Evt != evtReady {
			return fmt.Errorf("unexpected handshake reply %s/%s", resp.Cmd, resp.Evt)
		}
		return nil
	case opClose:
		return decodeCloseError(payload)
	default:
		return fmt.Errorf("unexpected %s frame during handshake", op)
	}
}

// SetActivity publishes the activity.
func (c *Client) SetActivity(a presence.Activity) error {
	act := &activity{
		Details: a.Title,
		State:   a.Subtitle,
	}
	if a.Icon != "" {
		act.Assets = &assets{LargeImage: a.Icon}
	}
	return c.setActivity(act)
}

// ClearActivity removes the published activity.
func (c *Client) ClearActivity() error {
	return c.setActivity(nil)
}

func (c *Client) setActivity(act *activity) error {
	return c.exchange(command{
		Cmd:   cmdSetActivity,
		Args:  setActivityArgs{PID: c.pid, Activity: act},
		Nonce: c.nonce(),
	})
}

// exchange sends cmd and waits for the reply carrying the same nonce. Errors
// that leave the socket unusable wrap presence.ErrDisconnected.
func (c *Client) exchange(cmd command) error {
	if c.conn == nil {
		return fmt.Errorf("%w: %w", presence.ErrDisconnected, ErrNotConnected)
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return c.fail(fmt.Errorf("setting deadline: %w", err))
	}
	if err := writeFrame(c.conn, opFrame, cmd); err != nil {
		return c.fail(err)
	}

	for {
		op, payload, err := readFrame(c.conn)
		if err != nil {
			return c.fail(err)
		}

		switch op {
		case opPing:
			var pong any = struct{}{}
			if len(payload) > 0 {
				pong = json.RawMessage(payload)
			}
			if err := writeFrame(c.conn, opPong, pong); err != nil {
				return c.fail(err)
			}
		case opClose:
			return c.fail(decodeCloseError(payload))
		case opFrame:
			var resp response
			if err := json.Unmarshal(payload, &resp); err != nil {
				return fmt.Errorf("decoding %s reply: %w", cmd.Cmd, err)
			}
			if resp.Nonce != cmd.Nonce {
				c.logger.Debug("skipping unrelated discord frame", "cmd", resp.Cmd, "evt", resp.Evt)
				continue
			}
			if resp.Evt == evtError {
				cmdErr := &CommandError{Cmd: cmd.Cmd}
				if err := json.Unmarshal(resp.Data, cmdErr); err != nil {
					return fmt.Errorf("decoding %s error: %w", cmd.Cmd, err)
				}
				return cmdErr
			}
			return nil
		default:
			c.logger.Debug("ignoring discord frame", "opcode", op.String())
		}
	}
}

// fail drops a connection that can no longer be used and returns err marked
// as a lost connection.
func (c *Client) fail(err error) error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.logger.Warn("discord ipc connection lost", "socket", c.path, "error", err)
	}
	return fmt.Errorf("%w: %w", presence.ErrDisconnected, err)
}

// Close says goodbye to Discord and closes the socket.
func (c *Client) Close() error {
	if c.conn == nil {
		return ErrNotConnected
	}
	conn := c.conn
	c.conn = nil

	var errs []error
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		errs = append(errs, err)
	}
	if err := writeFrame(conn, opClose, struct{}{}); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		errs = append(errs, err)
	}
	if err := conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing socket: %w", err))
	}

	c.logger.Debug("discord ipc closed", "socket", c.path)
	return errors.Join(errs...)
}

// Connected reports whether the client holds an open connection.
func (c *Client) Connected() bool {
	return c.conn != nil
}

func decodeCloseError(payload []byte) error {
	closeErr := &CloseError{}
	if err := json.Unmarshal(payload, closeErr); err != nil {
		return fmt.Errorf("decoding close frame: %w", err)
	}
	return closeErr
}
