// Package session implements the per-connection protocol state machine:
// authentication handshake, navigation loop, and the recharge overlay that
// wraps every receive.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foundry9/robonav/auth"
	"github.com/foundry9/robonav/config"
	"github.com/foundry9/robonav/nav"
	"github.com/foundry9/robonav/protocol"
	"github.com/foundry9/robonav/telemetry"
)

// Phase is one state of the session state machine.
type Phase string

const (
	AwaitingUsername       Phase = "AwaitingUsername"
	AwaitingKeyId          Phase = "AwaitingKeyId"
	AwaitingClientConfirm  Phase = "AwaitingClientConfirm"
	Navigating             Phase = "Navigating"
	AwaitingSecret         Phase = "AwaitingSecret"
	Terminated             Phase = "Terminated"
)

// errLogicError signals a recharge-protocol violation: FULL POWER received
// while not recharging, or something other than FULL POWER received while
// recharging.
var errLogicError = errors.New("session: logic error")

// Session runs one robot's conversation end to end.
type Session struct {
	id     string
	cfg    *config.Config
	conn   net.Conn
	framer *protocol.Framer
	broker *telemetry.Broker
	log    zerolog.Logger

	phase            Phase
	username         string
	keyID            int
	usernameHash     uint16
	recharging       bool
	navigator        *nav.Navigator
	lastObstacleHits int
}

// New constructs a Session over conn. cfg and broker are shared read-only
// by reference across all sessions of a process.
func New(conn net.Conn, cfg *config.Config, broker *telemetry.Broker, log zerolog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		cfg:    cfg,
		conn:   conn,
		framer: protocol.NewFramer(conn, cfg.TerminatorBytes()),
		broker: broker,
		log:    log.With().Str("session_id", id).Str("remote_addr", conn.RemoteAddr().String()).Logger(),
		phase:  AwaitingUsername,
	}
}

// Run drives the session to completion. It always closes conn before
// returning. Run never returns a "session failed" error to its caller: all
// protocol and transport failures are terminal states handled internally,
// matching the policy that no error propagates past the session boundary.
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close()
	defer s.framer.Reset()

	s.publish(telemetry.Connected, "connected")

	if err := s.runUnauthenticated(ctx); err != nil {
		s.log.Debug().Err(err).Msg("session ended before navigation")
		s.publish(telemetry.Closed, err.Error())
		return
	}

	s.runNavigation(ctx)
	s.publish(telemetry.Closed, "session complete")
}

// runUnauthenticated drives AwaitingUsername through AwaitingClientConfirm.
// It returns nil once authentication has succeeded (phase == Navigating).
func (s *Session) runUnauthenticated(ctx context.Context) error {
	payload, err := s.receive(ctx, protocol.MaxUsernameLen)
	if err != nil {
		return s.classifyReceiveErr(err)
	}
	if err := s.rejectFullPowerOutOfOverlay(payload); err != nil {
		return s.fail(protocol.LogicErrorMsg, err)
	}
	username, err := protocol.ValidateUsername(payload)
	if err != nil {
		return s.fail(protocol.SyntaxErrorMsg, err)
	}
	s.username = username
	s.usernameHash = auth.UsernameHash(username)
	s.phase = AwaitingKeyId
	if err := s.send(protocol.KeyRequest); err != nil {
		return s.failTransport(err)
	}

	payload, err = s.receive(ctx, protocol.MaxKeyIDLen)
	if err != nil {
		return s.classifyReceiveErr(err)
	}
	if err := s.rejectFullPowerOutOfOverlay(payload); err != nil {
		return s.fail(protocol.LogicErrorMsg, err)
	}
	keyID, err := protocol.ValidateKeyID(payload, len(s.cfg.Keys))
	if err != nil {
		var oor *protocol.KeyOutOfRangeError
		if errors.As(err, &oor) {
			return s.fail(protocol.KeyOutOfRange, err)
		}
		return s.fail(protocol.SyntaxErrorMsg, err)
	}
	s.keyID = keyID
	s.phase = AwaitingClientConfirm
	key := s.cfg.Keys[keyID]
	serverConfirm := auth.ServerConfirm(s.usernameHash, key)
	if err := s.send(fmt.Sprintf("%d", serverConfirm)); err != nil {
		return s.failTransport(err)
	}

	payload, err = s.receive(ctx, protocol.MaxConfirmLen)
	if err != nil {
		return s.classifyReceiveErr(err)
	}
	if err := s.rejectFullPowerOutOfOverlay(payload); err != nil {
		return s.fail(protocol.LogicErrorMsg, err)
	}
	confirm, err := protocol.ValidateConfirmation(payload)
	if err != nil {
		return s.fail(protocol.SyntaxErrorMsg, err)
	}
	if !auth.CheckClientConfirm(s.usernameHash, key, confirm) {
		return s.fail(protocol.LoginFailed, fmt.Errorf("session: client confirmation mismatch"))
	}

	s.phase = Navigating
	s.publish(telemetry.Authenticated, s.username)
	if err := s.send(protocol.AuthOK); err != nil {
		return s.failTransport(err)
	}
	return nil
}

// runNavigation drives Navigating through AwaitingSecret and terminates the
// connection. It never returns an error: every failure here is terminal
// and already handled (response sent or silently closed) before return.
func (s *Session) runNavigation(ctx context.Context) {
	s.navigator = nav.New(s.cfg.MaxSteps, s.cfg.MaxObstacleHits)
	cmd := s.navigator.First()
	if err := s.send(cmd.Message()); err != nil {
		return
	}

	for {
		payload, err := s.receive(ctx, protocol.MaxOKLen)
		if err != nil {
			if errors.Is(err, errLogicError) {
				s.fail(protocol.LogicErrorMsg, err)
			} else if errors.Is(err, protocol.ErrSyntax) {
				s.fail(protocol.SyntaxErrorMsg, err)
			} else {
				s.logTransportEnd(err)
			}
			return
		}
		if err := s.rejectFullPowerOutOfOverlay(payload); err != nil {
			s.fail(protocol.LogicErrorMsg, err)
			return
		}
		ack, err := protocol.ValidateOK(payload)
		if err != nil {
			s.fail(protocol.SyntaxErrorMsg, err)
			return
		}

		next := s.navigator.Advance(ack)
		s.publishMove(ack)

		if s.navigator.Exhausted() {
			s.log.Info().Msg("navigation budget exhausted, closing without response")
			return
		}
		if next == nav.CmdPickUp {
			s.publish(telemetry.Arrived, s.username)
			if err := s.send(next.Message()); err != nil {
				return
			}
			s.phase = AwaitingSecret
			break
		}
		if err := s.send(next.Message()); err != nil {
			return
		}
	}

	payload, err := s.receive(ctx, protocol.MaxSecretLen)
	if err != nil {
		if errors.Is(err, errLogicError) {
			s.fail(protocol.LogicErrorMsg, err)
		} else if errors.Is(err, protocol.ErrSyntax) {
			s.fail(protocol.SyntaxErrorMsg, err)
		} else {
			s.logTransportEnd(err)
		}
		return
	}
	if err := s.rejectFullPowerOutOfOverlay(payload); err != nil {
		s.fail(protocol.LogicErrorMsg, err)
		return
	}
	secret, err := protocol.ValidateSecret(payload)
	if err != nil {
		s.fail(protocol.SyntaxErrorMsg, err)
		return
	}
	s.log.Info().Str("secret", secret).Msg("secret retrieved")
	s.phase = Terminated
	_ = s.send(protocol.Logout)
}

// rejectFullPowerOutOfOverlay implements the state-table rule that any
// FULL POWER received while not recharging is a LogicError, independent of
// whatever message kind was actually expected.
func (s *Session) rejectFullPowerOutOfOverlay(payload []byte) error {
	if !s.recharging && protocol.IsFullPower(payload) {
		return errLogicError
	}
	return nil
}

// receive reads the next non-recharge message, transparently absorbing any
// number of interleaved RECHARGING/FULL POWER pairs. expectedMaxLen is the
// maximum length of the message actually due in the current phase.
func (s *Session) receive(ctx context.Context, expectedMaxLen int) ([]byte, error) {
	maxLen := expectedMaxLen
	if protocol.RechargingLen > maxLen {
		maxLen = protocol.RechargingLen
	}
	payload, err := s.framer.Next(ctx, maxLen, s.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if protocol.IsRecharging(payload) {
		if err := s.handleRecharge(ctx); err != nil {
			return nil, err
		}
		return s.receive(ctx, expectedMaxLen)
	}
	return payload, nil
}

// handleRecharge implements the §4.6 overlay: switch to the recharging
// deadline, await exactly one more message, and either resume normal
// operation or fail with a logic error.
func (s *Session) handleRecharge(ctx context.Context) error {
	s.recharging = true
	s.publish(telemetry.Recharging, "recharging")

	payload, err := s.framer.Next(ctx, protocol.FullPowerLen, s.cfg.TimeoutRecharging)
	if err != nil {
		return err
	}
	if !protocol.IsFullPower(payload) {
		return errLogicError
	}
	s.recharging = false
	s.publish(telemetry.Recovered, "recovered")
	return nil
}

// send writes msg followed by the configured terminator.
func (s *Session) send(msg string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		return fmt.Errorf("session: set write deadline: %w", err)
	}
	_, err := s.conn.Write(append([]byte(msg), s.cfg.TerminatorBytes()...))
	if err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return nil
}

// fail sends the designated error response (if any), closes, and returns
// an error describing the cause for logging.
func (s *Session) fail(response string, cause error) error {
	s.phase = Terminated
	if response != "" {
		_ = s.send(response)
	}
	kind := "logic_error"
	switch response {
	case protocol.SyntaxErrorMsg:
		kind = "syntax_error"
	case protocol.KeyOutOfRange:
		kind = "key_out_of_range"
	case protocol.LoginFailed:
		kind = "login_failed"
	}
	s.publish(telemetry.Error, kind)
	return cause
}

// classifyReceiveErr routes a receive() failure to the right terminal
// response: a recharge-protocol violation still gets a LOGIC ERROR reply,
// an oversize frame gets a SYNTAX ERROR reply, and everything else
// (timeout, EOF, reset) is a silent close.
func (s *Session) classifyReceiveErr(err error) error {
	if errors.Is(err, errLogicError) {
		return s.fail(protocol.LogicErrorMsg, err)
	}
	if errors.Is(err, protocol.ErrSyntax) {
		return s.fail(protocol.SyntaxErrorMsg, err)
	}
	return s.failTransport(err)
}

// failTransport handles a transport-level failure (timeout, EOF, reset):
// no response is sent per the Timeout/Exhaustion error taxonomy.
func (s *Session) failTransport(err error) error {
	s.phase = Terminated
	s.logTransportEnd(err)
	return err
}

func (s *Session) logTransportEnd(err error) {
	switch {
	case protocol.IsTimeout(err):
		s.log.Debug().Msg("read timeout, closing")
	case protocol.IsClosed(err):
		s.log.Debug().Msg("connection closed")
	default:
		s.log.Warn().Err(err).Msg("transport error")
	}
}

func (s *Session) publish(kind telemetry.Kind, detail string) {
	if s.broker == nil {
		return
	}
	ev := telemetry.Event{
		SessionID:  s.id,
		Time:       time.Now(),
		Kind:       kind,
		Phase:      string(s.phase),
		Username:   s.username,
		Recharging: s.recharging,
		Detail:     detail,
	}
	if s.navigator != nil {
		ev.StepsRemaining = s.navigator.StepsRemaining()
		ev.ObstacleHits = s.navigator.ObstacleHits()
	}
	s.broker.Publish(ev)
}

func (s *Session) publishMove(p protocol.Point) {
	if s.broker == nil {
		return
	}
	kind := telemetry.Move
	if s.navigator.ObstacleHits() > s.lastObstacleHits {
		kind = telemetry.Obstacle
	}
	s.lastObstacleHits = s.navigator.ObstacleHits()

	ev := telemetry.Event{
		SessionID:      s.id,
		Time:           time.Now(),
		Kind:           kind,
		Phase:          string(s.phase),
		Username:       s.username,
		Position:       &p,
		StepsRemaining: s.navigator.StepsRemaining(),
		ObstacleHits:   s.navigator.ObstacleHits(),
		Recharging:     s.recharging,
	}
	if h, ok := s.navigator.Heading(); ok {
		ev.Heading = h.String()
	}
	s.broker.Publish(ev)
}
