// Terminal chat client.
//
// Screens
// -------
//   stateLogin – centered login / register form
//   stateChat  – full-screen chat with scrollable message viewport
//
// Concurrency
// -----------
//   A single goroutine reads length-prefixed frames from the TCP connection
//   and forwards the payloads to the pkts channel.  The Bubbletea event loop
//   consumes one payload at a time via waitForPkt (a tea.Cmd), immediately
//   queuing the next read after each packet is processed.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tcpchat/internal/protocol"
)

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(purple).
			Foreground(white).
			Padding(0, 1)

	footerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(gray).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(purple).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(gray).
			Width(10)

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(cyan).
				Width(10)

	hintStyle = lipgloss.NewStyle().
			Foreground(gray).
			Italic(true)

	successStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	sysStyle     = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	tsStyle      = lipgloss.NewStyle().Foreground(gray)
	myNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle    = lipgloss.NewStyle().Bold(true).Foreground(blue)
)

// ---------------------------------------------------------------------------
// Bubbletea message types
// ---------------------------------------------------------------------------

type serverPktMsg []byte      // a raw frame payload arrived from the server
type disconnectedMsg struct{} // server closed the connection

// ---------------------------------------------------------------------------
// Application state
// ---------------------------------------------------------------------------

type appState int

const (
	stateLogin appState = iota
	stateChat
)

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

type model struct {
	conn net.Conn
	pkts chan []byte // goroutine → bubbletea bridge

	state appState
	me    string // authenticated user name

	// Login / register
	loginIsReg  bool
	loginFocus  int
	loginFields [2]textinput.Model // [0]=name  [1]=password
	statusMsg   string
	awaitAuth   bool // an Authentication request is in flight

	// Chat
	ready       bool
	viewport    viewport.Model
	chatInput   textinput.Model
	chatLines   []string // rendered lines shown in the viewport
	onlineCount int

	width, height int
}

func newModel(conn net.Conn, pkts chan []byte) model {
	nf := textinput.New()
	nf.Placeholder = "user name"
	nf.Focus()
	nf.CharLimit = 32
	nf.Width = 32

	pf := textinput.New()
	pf.Placeholder = "password"
	pf.EchoMode = textinput.EchoPassword
	pf.EchoCharacter = '•'
	pf.CharLimit = 32
	pf.Width = 32

	ci := textinput.New()
	ci.Placeholder = "Type a message…"
	ci.CharLimit = 500

	return model{
		conn:        conn,
		pkts:        pkts,
		state:       stateLogin,
		loginFields: [2]textinput.Model{nf, pf},
		chatInput:   ci,
	}
}

// ---------------------------------------------------------------------------
// Tea interface – Init
// ---------------------------------------------------------------------------

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForPkt(m.pkts))
}

// ---------------------------------------------------------------------------
// Tea interface – Update
// ---------------------------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		return m, nil

	case serverPktMsg:
		m = m.handleServerPkt([]byte(msg))
		return m, waitForPkt(m.pkts)

	case disconnectedMsg:
		m.statusMsg = "disconnected from server"
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.state {
		case stateLogin:
			return m.handleLoginKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		}
	}
	return m, nil
}

// vpHeight returns the number of lines available for the chat viewport.
func (m model) vpHeight() int {
	// header (1) + footer border (1) + footer input (1) = 3 lines reserved
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

// ---------------------------------------------------------------------------
// Key handlers
// ---------------------------------------------------------------------------

func (m model) handleLoginKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		m.loginFocus = (m.loginFocus + 1) % 2
		for i := range m.loginFields {
			if i == m.loginFocus {
				m.loginFields[i].Focus()
			} else {
				m.loginFields[i].Blur()
			}
		}
		return m, textinput.Blink

	case tea.KeyCtrlR:
		m.loginIsReg = !m.loginIsReg
		m.statusMsg = ""
		return m, nil

	case tea.KeyEnter:
		name := strings.TrimSpace(m.loginFields[0].Value())
		pass := m.loginFields[1].Value()
		if name == "" || pass == "" {
			m.statusMsg = "user name and password are required"
			return m, nil
		}
		if m.loginIsReg {
			sendRequest(m.conn, protocol.NewRegistrationRequest(name, pass))
			m.statusMsg = "Registering…"
		} else {
			sendRequest(m.conn, protocol.NewAuthenticationRequest(name, pass))
			m.statusMsg = "Authenticating…"
			m.awaitAuth = true
		}
		return m, nil
	}

	// Forward keystroke to the focused login field.
	var cmd tea.Cmd
	m.loginFields[m.loginFocus], cmd = m.loginFields[m.loginFocus].Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlQ:
		return m, tea.Quit

	case tea.KeyEnter:
		text := strings.TrimSpace(m.chatInput.Value())
		if text != "" {
			sendRequest(m.conn, protocol.NewMessageRequest(text))
			// The server never echoes a message back to its sender.
			m.appendChat(m.renderLine(m.me, text))
			m.chatInput.Reset()
		}
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

// ---------------------------------------------------------------------------
// Server packet handler
// ---------------------------------------------------------------------------

func (m model) handleServerPkt(data []byte) model {
	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return m
	}

	switch {
	case resp.AuthenticationResult != nil:
		r := resp.AuthenticationResult
		m.awaitAuth = false
		if r.Result {
			m.me = strings.TrimSpace(m.loginFields[0].Value())
			m.state = stateChat
			m.chatInput.Focus()
			m.onlineCount = 1
			m.appendChat(sysStyle.Render("⚡ connected as " + m.me))
			return m
		}
		if r.Error != nil {
			m.statusMsg = r.Error.Error()
		} else {
			m.statusMsg = "authentication failed"
		}

	case resp.RegistrationResult != nil:
		r := resp.RegistrationResult
		if r.Result {
			// Registration does not authenticate; follow up immediately.
			name := strings.TrimSpace(m.loginFields[0].Value())
			pass := m.loginFields[1].Value()
			sendRequest(m.conn, protocol.NewAuthenticationRequest(name, pass))
			m.statusMsg = "Registered, authenticating…"
			m.awaitAuth = true
			return m
		}
		if r.Error != nil {
			m.statusMsg = r.Error.Error()
		} else {
			m.statusMsg = "registration failed"
		}

	case resp.Message != nil:
		m.appendChat(m.renderLine(resp.Message.UserName, resp.Message.Message))

	case resp.Connection != nil:
		c := resp.Connection
		if c.IsConnected {
			m.onlineCount++
			m.appendChat(sysStyle.Render("⚡ " + c.UserName + " joined the chat"))
		} else {
			if m.onlineCount > 1 {
				m.onlineCount--
			}
			m.appendChat(sysStyle.Render("⚡ " + c.UserName + " left the chat"))
		}
	}
	return m
}

// renderLine renders one chat line with a local timestamp.
func (m model) renderLine(name, text string) string {
	ts := tsStyle.Render("[" + time.Now().Format("15:04:05") + "]")
	var styled string
	if name == m.me {
		styled = myNameStyle.Render(name)
	} else {
		styled = peerStyle.Render(name)
	}
	return ts + " " + styled + ": " + text
}

// appendChat adds a rendered line and scrolls the viewport to the bottom.
func (m *model) appendChat(line string) {
	m.chatLines = append(m.chatLines, line)
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

// ---------------------------------------------------------------------------
// Tea interface – View
// ---------------------------------------------------------------------------

func (m model) View() string {
	switch m.state {
	case stateLogin:
		return m.viewLogin()
	case stateChat:
		return m.viewChat()
	}
	return ""
}

func (m model) viewLogin() string {
	if m.width == 0 {
		return "\n  Connecting to server…"
	}

	mode := "Login"
	other := "Register"
	if m.loginIsReg {
		mode, other = "Register", "Login"
	}

	title := titleStyle.Render("  Terminal Chat  ")

	renderField := func(label string, f textinput.Model, focused bool) string {
		var lbl string
		if focused {
			lbl = focusedLabelStyle.Render(label)
		} else {
			lbl = labelStyle.Render(label)
		}
		return lbl + "  " + f.View()
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		renderField("Name", m.loginFields[0], m.loginFocus == 0),
		renderField("Password", m.loginFields[1], m.loginFocus == 1),
		"",
		hintStyle.Render(fmt.Sprintf("Tab: switch field   Enter: %s   Ctrl+R: switch to %s", mode, other)),
		hintStyle.Render("Ctrl+C: quit"),
		"",
		m.renderStatus(),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting…"
	}

	hdr := headerStyle.
		Width(m.width).
		Render(fmt.Sprintf(" Terminal Chat  ·  %s  ·  %d online  ·  PgUp/Dn: Scroll  Ctrl+C: Quit",
			m.me, m.onlineCount))

	footer := footerBorderStyle.
		Width(m.width - 2).
		Render(m.chatInput.View())

	return lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), footer)
}

// renderStatus renders the login status line with appropriate colour.
func (m model) renderStatus() string {
	if m.statusMsg == "" {
		return ""
	}
	if strings.Contains(m.statusMsg, "…") {
		return hintStyle.Render(m.statusMsg)
	}
	if strings.HasPrefix(m.statusMsg, "Registered") {
		return successStyle.Render(m.statusMsg)
	}
	return errorStyle.Render(m.statusMsg)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// waitForPkt returns a tea.Cmd that blocks until the next payload arrives on
// ch.  When ch is closed (server disconnected), it returns disconnectedMsg.
func waitForPkt(ch <-chan []byte) tea.Cmd {
	return func() tea.Msg {
		data, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return serverPktMsg(data)
	}
}

// sendRequest serialises req and writes it to conn as one framed message.
func sendRequest(conn net.Conn, req protocol.Request) {
	data, err := json.Marshal(req)
	if err != nil {
		return
	}
	protocol.WriteFrame(conn, data)
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "127.0.0.1:6969", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// pkts bridges the TCP reader goroutine and the Bubbletea event loop.
	pkts := make(chan []byte, 64)

	// Reader goroutine: framed TCP → pkts channel.
	go func() {
		defer close(pkts)
		r := bufio.NewReader(conn)
		for {
			payload, err := protocol.ReadFrame(r)
			if err != nil {
				return
			}
			pkts <- payload
		}
	}()

	p := tea.NewProgram(
		newModel(conn, pkts),
		tea.WithAltScreen(),       // use the alternate screen buffer
		tea.WithMouseCellMotion(), // enable mouse wheel scrolling
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
