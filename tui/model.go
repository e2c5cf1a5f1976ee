// Package tui implements the operator dashboard: a terminal client that
// connects to a robonavd monitoring endpoint and renders live session
// state. It is read-only; it cannot issue protocol commands to any
// session.
package tui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/foundry9/robonav/clipboard"
	"github.com/foundry9/robonav/telemetry"
)

type eventMsg telemetry.Event
type errMsg error
type connectedMsg struct{}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	target string
	client *http.Client

	sessions map[string]telemetry.Event
	history  map[string][]telemetry.Event
	order    []string

	cursor    int
	connected bool
	lastErr   error

	width, height int

	events chan eventMsg
	errs   chan error
}

// New constructs a Model that will connect to target (a host:port or URL)
// when Init runs.
func New(target string) Model {
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	return Model{
		target:   target,
		client:   &http.Client{},
		sessions: make(map[string]telemetry.Event),
		history:  make(map[string][]telemetry.Event),
		events:   make(chan eventMsg, 64),
		errs:     make(chan error, 1),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.connect(), m.waitForEvent())
}

// connect launches the long-lived SSE read loop in the background; it
// reports back over m.events/m.errs rather than blocking Update.
func (m Model) connect() tea.Cmd {
	return func() tea.Msg {
		go m.streamEvents()
		return connectedMsg{}
	}
}

func (m Model) streamEvents() {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, m.target+"/api/events", nil)
	if err != nil {
		m.errs <- err
		return
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.errs <- err
		return
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev telemetry.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		m.events <- eventMsg(ev)
	}
	if err := scanner.Err(); err != nil {
		m.errs <- err
	} else {
		m.errs <- fmt.Errorf("stream closed")
	}
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return ev
		case err := <-m.errs:
			return errMsg(err)
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.order)-1 {
				m.cursor++
			}
		case "c":
			if m.cursor >= 0 && m.cursor < len(m.order) {
				id := m.order[m.cursor]
				go func() { _ = clipboard.Copy(context.Background(), id) }()
			}
		}
		return m, nil

	case connectedMsg:
		m.connected = true
		return m, nil

	case eventMsg:
		ev := telemetry.Event(msg)
		m.applyEvent(ev)
		return m, m.waitForEvent()

	case errMsg:
		m.connected = false
		m.lastErr = msg
		return m, tea.Batch(tea.Tick(time.Second, func(time.Time) tea.Msg {
			return m.connect()()
		}), m.waitForEvent())
	}
	return m, nil
}

func (m *Model) applyEvent(ev telemetry.Event) {
	if ev.Kind == telemetry.Closed {
		delete(m.sessions, ev.SessionID)
		delete(m.history, ev.SessionID)
		for i, id := range m.order {
			if id == ev.SessionID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		if m.cursor >= len(m.order) && m.cursor > 0 {
			m.cursor = len(m.order) - 1
		}
		return
	}

	if _, ok := m.sessions[ev.SessionID]; !ok {
		m.order = append(m.order, ev.SessionID)
		sort.Strings(m.order)
	}
	m.sessions[ev.SessionID] = ev
	m.history[ev.SessionID] = append(m.history[ev.SessionID], ev)
	if len(m.history[ev.SessionID]) > 200 {
		m.history[ev.SessionID] = m.history[ev.SessionID][len(m.history[ev.SessionID])-200:]
	}
}

func (m Model) View() string {
	if !m.connected && m.lastErr != nil {
		return friendlyError(m.lastErr, max(m.width, 40))
	}
	return m.renderList(max(m.height-4, 5))
}
