// pkg/shell/shell.go
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/mirage/pkg/deception"
	"github.com/lucid-vigil/mirage/pkg/events"
	"github.com/lucid-vigil/mirage/pkg/metrics"
	"github.com/lucid-vigil/mirage/pkg/profile"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

// State is one phase of the fake protocol conversation.
type State int

const (
	StateGreeting State = iota
	StateAuthenticating
	StateShell
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateAuthenticating:
		return "authenticating"
	case StateShell:
		return "shell"
	case StateClosed:
		return "closed"
	}
	return "invalid"
}

// Options configure one conversation.
type Options struct {
	// Banner is written as "SSH-2.0-<Banner>" on entry.
	Banner string
	// ReadTimeout bounds each blocking line read; zero disables the bound.
	ReadTimeout time.Duration
	// DeceptionEnabled gates the adaptive pre/post hooks.
	DeceptionEnabled bool
}

// Conversation drives the line-oriented fake shell over one accepted
// connection: Greeting, Authenticating, Shell, Closed. Transport errors force
// an immediate transition to Closed and never escape Run.
type Conversation struct {
	conn     net.Conn
	reader   *bufio.Reader
	sess     storage.Session
	recorder *events.Recorder
	deceiver *deception.Engine
	label    profile.Label
	opts     Options
	logger   zerolog.Logger

	cwd   string
	trace []events.Event
}

// NewConversation prepares a conversation for the given session. The label is
// whatever the store held for this session id when the connection arrived.
func NewConversation(
	conn net.Conn,
	sess storage.Session,
	recorder *events.Recorder,
	deceiver *deception.Engine,
	label profile.Label,
	opts Options,
	logger zerolog.Logger,
) *Conversation {
	return &Conversation{
		conn:     conn,
		reader:   bufio.NewReader(conn),
		sess:     sess,
		recorder: recorder,
		deceiver: deceiver,
		label:    label,
		opts:     opts,
		logger: logger.With().
			Str("component", "shell").
			Str("session_id", sess.ID).
			Logger(),
		cwd: HomeDir,
	}
}

// Run executes the state machine until Closed and returns the events recorded
// during the conversation, in order, for end-of-session analysis. The caller
// still gets a usable trace when the peer vanishes mid-state.
func (c *Conversation) Run(ctx context.Context) []events.Event {
	for state := StateGreeting; state != StateClosed; {
		next, err := c.step(ctx, state)
		if err != nil {
			if !isDisconnect(err) {
				c.logger.Warn().Err(err).Str("state", state.String()).Msg("Transport error, closing session")
			}
			break
		}
		state = next
	}
	return c.trace
}

func (c *Conversation) step(ctx context.Context, state State) (State, error) {
	switch state {
	case StateGreeting:
		return c.greet()
	case StateAuthenticating:
		return c.authenticate()
	case StateShell:
		return c.shell(ctx)
	}
	return StateClosed, nil
}

func (c *Conversation) greet() (State, error) {
	if err := c.write(fmt.Sprintf("SSH-2.0-%s\r\n", c.opts.Banner)); err != nil {
		return StateClosed, err
	}
	return StateAuthenticating, nil
}

// authenticate performs the decoy credential exchange. The denial line is
// cosmetic; the session proceeds to the shell regardless of what was typed.
func (c *Conversation) authenticate() (State, error) {
	username, err := c.prompt("login as: ")
	if err != nil {
		return StateClosed, err
	}

	password, err := c.prompt(fmt.Sprintf("%s@password: ", username))
	if err != nil {
		return StateClosed, err
	}

	c.record(events.KindAuthAttempt, map[string]string{
		"username": username,
		"password": password,
	})
	metrics.AuthAttemptsTotal.Inc()

	if err := c.write("Permission denied, please try again.\n"); err != nil {
		return StateClosed, err
	}
	if err := c.write("Welcome to Ubuntu 22.04 LTS (GNU/Linux 5.15.0)\n\n"); err != nil {
		return StateClosed, err
	}

	return StateShell, nil
}

func (c *Conversation) shell(ctx context.Context) (State, error) {
	for {
		if err := c.write(fmt.Sprintf("%s@%s:%s$ ", FakeUser, FakeHost, c.cwd)); err != nil {
			return StateClosed, err
		}

		command, err := c.readLine()
		if err != nil {
			return StateClosed, err
		}

		c.record(events.KindCommand, map[string]string{"command": command})
		metrics.CommandsTotal.Inc()

		if IsExitToken(command) {
			c.write("logout\n")
			return StateClosed, nil
		}

		output := c.execute(ctx, command)
		if err := c.write(output + "\n"); err != nil {
			return StateClosed, err
		}
	}
}

func (c *Conversation) execute(ctx context.Context, command string) string {
	if !c.opts.DeceptionEnabled {
		return Dispatch(command, c.cwd)
	}

	if delay := c.deceiver.PreCommand(ctx, c.label); delay > 0 {
		metrics.DeceptionDelaySeconds.Observe(delay.Seconds())
	}

	output := Dispatch(command, c.cwd)
	return c.deceiver.PostCommand(c.label, command, output)
}

func (c *Conversation) prompt(text string) (string, error) {
	if err := c.write(text); err != nil {
		return "", err
	}
	return c.readLine()
}

func (c *Conversation) readLine() (string, error) {
	if c.opts.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
			return "", err
		}
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Conversation) write(s string) error {
	_, err := c.conn.Write([]byte(s))
	return err
}

func (c *Conversation) record(kind events.Kind, payload map[string]string) {
	c.trace = append(c.trace, c.recorder.Record(c.sess.ID, kind, payload))
}

// isDisconnect reports whether err is the peer going away rather than a
// fault worth flagging to the operator.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
