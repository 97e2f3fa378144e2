package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading-demov1/internal/model"
)

// Client represents a single WebSocket peer. Each client reports its
// canvas size so scenes are rendered at the right dimensions.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Canvas dimensions in CSS pixels, set by the "canvas" command.
	// Zero until the client reports; scene sends are skipped until then.
	dimMu   sync.Mutex
	canvasW float64
	canvasH float64
}

// command is the client-to-server message frame. One struct covers all
// commands; Type selects which fields matter.
type command struct {
	Type string `json:"type"`
	Ping int64  `json:"ping"`

	// open
	Side     string `json:"side"`
	Stake    string `json:"stake"`
	Duration int    `json:"duration"`

	// set_tf
	TF string `json:"tf"`

	// toggle_indicator
	Name string `json:"name"`
	On   bool   `json:"on"`

	// wheel
	Notches int `json:"notches"`

	// pan
	StartOffset int     `json:"start_offset"`
	DX          float64 `json:"dx"`
	PlotW       float64 `json:"plot_w"`

	// pinch
	StartZoom int     `json:"start_zoom"`
	StartDist float64 `json:"start_dist"`
	Dist      float64 `json:"dist"`

	// crosshair
	Active bool    `json:"active"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`

	// canvas
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
		// Slow client; drop the frame, the next broadcast supersedes it.
	}
}

// sendState pushes the current snapshot and scene to this client only.
func (c *Client) sendState() {
	snap := c.hub.manager.Snapshot()
	msg, err := json.Marshal(envelope{Type: "state", Data: mustRaw(snap)})
	if err != nil {
		return
	}
	c.enqueue(msg)
	c.sendScene()
}

// sendScene renders and pushes the chart draw-list at this client's
// canvas size.
func (c *Client) sendScene() {
	c.dimMu.Lock()
	w, h := c.canvasW, c.canvasH
	c.dimMu.Unlock()
	if w <= 0 || h <= 0 {
		return
	}
	scene := c.hub.manager.BuildScene(w, h)
	msg, err := json.Marshal(envelope{Type: "scene", Data: mustRaw(scene)})
	if err != nil {
		return
	}
	c.enqueue(msg)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: batch queued messages into one frame
			// with newline separators.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd command
		if json.Unmarshal(msg, &cmd) != nil {
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch routes one client command to the session manager. Command
// errors come back to this client only as toasts; state broadcasts
// flow through the manager's OnChange callback.
func (c *Client) dispatch(cmd command) {
	m := c.hub.manager
	ctx := context.Background()

	switch cmd.Type {
	case "open":
		if err := m.Open(model.Side(cmd.Side), cmd.Stake, cmd.Duration); err != nil {
			c.toast(err.Error())
		}
	case "close":
		ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		m.Close(ctx)
	case "set_tf":
		if err := m.SetTimeframe(ctx, model.Timeframe(cmd.TF)); err != nil {
			c.toast(err.Error())
		}
	case "toggle_indicator":
		if err := m.ToggleIndicator(cmd.Name, cmd.On); err != nil {
			c.toast(err.Error())
		}
	case "wheel":
		m.Wheel(cmd.Notches)
	case "pan":
		m.Pan(cmd.StartOffset, cmd.DX, cmd.PlotW)
	case "pinch":
		m.Pinch(cmd.StartZoom, cmd.StartDist, cmd.Dist)
	case "crosshair":
		m.SetCrosshair(cmd.Active, cmd.X, cmd.Y)
	case "reset_view":
		m.ResetView()
	case "reset_demo":
		m.ResetDemo(ctx)
	case "canvas":
		if cmd.W > 0 && cmd.H > 0 {
			c.dimMu.Lock()
			c.canvasW, c.canvasH = cmd.W, cmd.H
			c.dimMu.Unlock()
			c.sendScene()
		}
	default:
		if cmd.Ping > 0 {
			c.enqueue(pongMsg(cmd.Ping))
		}
	}
}

func (c *Client) toast(text string) {
	msg, _ := json.Marshal(envelope{Type: "toast", Text: text})
	c.enqueue(msg)
}
