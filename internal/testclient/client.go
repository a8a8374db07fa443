// Package testclient is a websocket client for castd that records every frame
// it receives, for integration tests and the castsmoke tool.
package testclient

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lawnchairsociety/castcore/internal/notify"
	"github.com/lawnchairsociety/castcore/internal/session"
)

// TestClient is a connection to a castd websocket endpoint.
type TestClient struct {
	Name    string
	conn    *websocket.Conn
	frames  []notify.RawEnvelope
	welcome notify.Welcome
	seq     uint64
	mu      sync.Mutex
	writeMu sync.Mutex
	done    chan struct{}
}

// Dial connects to url (ws://host:port/ws) and waits for the welcome frame.
// A non-zero unit subscribes only to events involving that unit.
func Dial(name, url string, unit uint64) (*TestClient, error) {
	if unit != 0 {
		url = fmt.Sprintf("%s?unit=%d", url, unit)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name: name,
		conn: conn,
		done: make(chan struct{}),
	}
	go client.readFrames()

	env, ok := client.WaitFor(notify.FrameWelcome, 2*time.Second)
	if !ok {
		client.Close()
		return nil, fmt.Errorf("no welcome frame from %s", url)
	}
	if err := msgpack.Unmarshal(env.Body, &client.welcome); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to decode welcome: %w", err)
	}
	return client, nil
}

// readFrames continuously reads frames from the server
func (c *TestClient) readFrames() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := notify.Decode(data)
		if err != nil {
			continue
		}
		c.mu.Lock()
		c.frames = append(c.frames, env)
		c.mu.Unlock()
	}
}

// ID returns the client id assigned by the server.
func (c *TestClient) ID() string {
	return c.welcome.Client
}

// Send writes a request frame and returns the seq it was given.
func (c *TestClient) Send(typ string, body any) (uint64, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.seq++
	data, err := notify.Encode(typ, c.seq, body)
	if err != nil {
		return 0, err
	}
	return c.seq, c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Request sends a frame and waits for its response. A rejected frame
// returns the server's error message.
func (c *TestClient) Request(typ string, body any, timeout time.Duration) (session.Response, error) {
	seq, err := c.Send(typ, body)
	if err != nil {
		return session.Response{}, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, env := range c.Frames() {
			switch env.Type {
			case notify.FrameResponse:
				var r session.Response
				if err := msgpack.Unmarshal(env.Body, &r); err == nil && r.Seq == seq {
					return r, nil
				}
			case notify.FrameError:
				var e notify.ErrorBody
				if err := msgpack.Unmarshal(env.Body, &e); err == nil && e.Seq == seq {
					return session.Response{}, fmt.Errorf("rejected: %s", e.Message)
				}
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return session.Response{}, fmt.Errorf("no response to %s frame %d", typ, seq)
}

// Frames returns all frames received so far
func (c *TestClient) Frames() []notify.RawEnvelope {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy
	result := make([]notify.RawEnvelope, len(c.frames))
	copy(result, c.frames)
	return result
}

// ClearFrames clears the frame buffer
func (c *TestClient) ClearFrames() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// WaitFor waits for a frame of the given type (with timeout)
func (c *TestClient) WaitFor(typ string, timeout time.Duration) (notify.RawEnvelope, bool) {
	return c.WaitForMatch(typ, timeout, func(notify.RawEnvelope) bool { return true })
}

// WaitForMatch waits for a frame of the given type that match accepts. A zero
// timeout only checks the frames already received.
func (c *TestClient) WaitForMatch(typ string, timeout time.Duration, match func(notify.RawEnvelope) bool) (notify.RawEnvelope, bool) {
	deadline := time.Now().Add(timeout)

	for {
		for _, env := range c.Frames() {
			if env.Type == typ && match(env) {
				return env, true
			}
		}
		if !time.Now().Before(deadline) {
			return notify.RawEnvelope{}, false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// WaitForResult waits for the cast_result frame of a cast handle.
func (c *TestClient) WaitForResult(handle string, timeout time.Duration) (notify.Result, bool) {
	var r notify.Result
	_, ok := c.WaitForMatch(notify.FrameResult, timeout, func(env notify.RawEnvelope) bool {
		return msgpack.Unmarshal(env.Body, &r) == nil && r.Handle == handle
	})
	return r, ok
}

// HasFrame checks if any frame of the given type was received
func (c *TestClient) HasFrame(typ string) bool {
	for _, env := range c.Frames() {
		if env.Type == typ {
			return true
		}
	}
	return false
}

// PrintFrames prints all frame types (for debugging)
func (c *TestClient) PrintFrames() {
	frames := c.Frames()
	fmt.Printf("\n=== Frames for %s ===\n", c.Name)
	for i, env := range frames {
		fmt.Printf("[%d] seq=%d %s\n", i, env.Seq, env.Type)
	}
	fmt.Println("======================")
}

// Close closes the client connection
func (c *TestClient) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
