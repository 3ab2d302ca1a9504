// Package discord pushes rich-presence activity over Discord's local IPC
// channel. The host enforces its own update rate limit, so the sink gates
// applies and truncates fields before anything goes on the wire.
package discord

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"faceit-presence/internal/config"
	"faceit-presence/internal/constants"
	"faceit-presence/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	opHandshake = 0
	opFrame     = 1
)

type Client struct {
	appID  string
	logger zerolog.Logger

	// dial is swapped for a pipe in tests.
	dial func() (io.ReadWriteCloser, error)

	mu        sync.Mutex
	conn      io.ReadWriteCloser
	connected bool
	lastApply time.Time
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		appID:  cfg.DiscordAppID,
		logger: logger,
		dial:   dialIPC,
	}
}

// Connect dials the local Discord socket and performs the handshake.
// Discord not running is a normal condition, reported as false.
func (c *Client) Connect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return true
	}

	conn, err := c.dial()
	if err != nil {
		c.logger.Warn().Err(err).Msg("discord not reachable, is it running?")
		return false
	}

	handshake := map[string]any{"v": 1, "client_id": c.appID}
	if err := writeFrame(conn, opHandshake, handshake); err != nil {
		c.logger.Warn().Err(err).Msg("discord handshake write failed")
		conn.Close()
		return false
	}
	if _, _, err := readFrame(conn); err != nil {
		c.logger.Warn().Err(err).Msg("discord handshake read failed")
		conn.Close()
		return false
	}

	c.conn = conn
	c.connected = true
	c.logger.Info().Msg("connected to discord")
	return true
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect closes the channel. Safe to call when already closed.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	c.logger.Info().Msg("disconnected from discord")
}

// Reconnect cycles the connection with a brief pause.
func (c *Client) Reconnect() bool {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()

	time.Sleep(constants.ReconnectPause)
	return c.Connect()
}

// Apply submits an activity update. No-op when disconnected or inside the
// minimum update interval; the interval only advances on success.
func (c *Client) Apply(p domain.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}
	if time.Since(c.lastApply) < constants.PresenceMinInterval {
		return
	}

	if err := c.setActivityLocked(buildActivity(p)); err != nil {
		c.logger.Warn().Err(err).Msg("discord connection lost")
		c.closeLocked()
		return
	}

	c.lastApply = time.Now()
	c.logger.Debug().Str("details", p.Details).Str("state", p.State).Msg("presence updated")
}

// Clear removes the displayed presence. Idempotent, not rate-gated.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}
	if err := c.setActivityLocked(nil); err != nil {
		c.logger.Warn().Err(err).Msg("discord connection lost")
		c.closeLocked()
		return
	}
	c.logger.Debug().Msg("presence cleared")
}

func (c *Client) closeLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

func (c *Client) setActivityLocked(act *activity) error {
	cmd := command{
		Cmd:   "SET_ACTIVITY",
		Args:  commandArgs{Pid: os.Getpid(), Activity: act},
		Nonce: uuid.New().String(),
	}
	if err := writeFrame(c.conn, opFrame, cmd); err != nil {
		return err
	}
	_, _, err := readFrame(c.conn)
	return err
}

type command struct {
	Cmd   string      `json:"cmd"`
	Args  commandArgs `json:"args"`
	Nonce string      `json:"nonce"`
}

type commandArgs struct {
	Pid      int       `json:"pid"`
	Activity *activity `json:"activity"`
}

type activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *timestamps `json:"timestamps,omitempty"`
	Assets     *assets     `json:"assets,omitempty"`
	Buttons    []button    `json:"buttons,omitempty"`
}

type timestamps struct {
	Start int64 `json:"start,omitempty"`
}

type assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

type button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// buildActivity enforces Discord's field limits in one place.
func buildActivity(p domain.Payload) *activity {
	act := &activity{
		Details: truncate(p.Details),
		State:   truncate(p.State),
	}
	if p.LargeImage != "" || p.SmallImage != "" {
		act.Assets = &assets{
			LargeImage: p.LargeImage,
			LargeText:  truncate(p.LargeText),
			SmallImage: p.SmallImage,
			SmallText:  truncate(p.SmallText),
		}
	}
	if p.Start > 0 {
		act.Timestamps = &timestamps{Start: p.Start}
	}

	btns := p.Buttons
	if len(btns) > constants.PresenceMaxButtons {
		btns = btns[:constants.PresenceMaxButtons]
	}
	for _, b := range btns {
		act.Buttons = append(act.Buttons, button{Label: truncate(b.Label), URL: b.URL})
	}
	return act
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= constants.PresenceMaxTextLen {
		return s
	}
	return string(r[:constants.PresenceMaxTextLen])
}

func writeFrame(w io.Writer, op uint32, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], op)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func readFrame(r io.Reader) (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	op := binary.LittleEndian.Uint32(header[0:4])
	size := binary.LittleEndian.Uint32(header[4:8])

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return op, body, nil
}
