package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"tundra/packet"
)

const (
	writeWait      = 5 * time.Second
	pingPeriod     = 20 * time.Second
	readLimit      = 64 << 20
	reconnectEvery = 2 * time.Second
	outboundQueue  = 256
)

// netClient keeps a websocket connection to the game server, reconnecting
// with a rate limit. Inbound binary messages are decoded and handed to
// deliver; outbound messages go through a bounded queue.
type netClient struct {
	url     string
	deliver func(msg any)
	limiter *rate.Limiter
	out     chan []byte

	mu        sync.Mutex
	connected bool

	bytesIn, bytesOut atomic.Uint64
	badPackets        atomic.Uint64
}

func newNetClient(url string, deliver func(any)) *netClient {
	return &netClient{
		url:     url,
		deliver: deliver,
		limiter: rate.NewLimiter(rate.Every(reconnectEvery), 1),
		out:     make(chan []byte, outboundQueue),
	}
}

// send queues b for the server. The oldest tick input is not worth blocking
// the game loop for, so a full queue drops the message.
func (n *netClient) send(b []byte) {
	select {
	case n.out <- b:
	default:
		logDebug("net: outbound queue full, dropped %d byte message", len(b))
	}
}

func (n *netClient) isConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *netClient) setConnected(v bool) {
	n.mu.Lock()
	n.connected = v
	n.mu.Unlock()
}

// status is the debug panel's connection line.
func (n *netClient) status() string {
	state := "offline"
	if n.isConnected() {
		state = "connected"
	}
	return fmt.Sprintf("net %s  in %s  out %s  bad %d", state,
		humanize.Bytes(n.bytesIn.Load()), humanize.Bytes(n.bytesOut.Load()), n.badPackets.Load())
}

// run dials and serves connections until ctx is done.
func (n *netClient) run(ctx context.Context) {
	for {
		if err := n.limiter.Wait(ctx); err != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, n.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logError("net: dial %v: %v", n.url, err)
			continue
		}
		logDebug("net: connected to %v", n.url)
		n.setConnected(true)
		err = n.serve(ctx, conn)
		n.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		logError("net: connection lost: %v", err)
	}
}

// serve runs the read loop on the calling goroutine and the write loop on
// another until either fails.
func (n *netClient) serve(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(readLimit)
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		err := n.writeLoop(connCtx, conn)
		if err != nil {
			conn.Close()
		}
		writeErr <- err
	}()

	readErr := n.readLoop(conn)
	cancel()
	conn.Close()
	werr := <-writeErr
	if readErr != nil {
		return readErr
	}
	return werr
}

func (n *netClient) readLoop(conn *websocket.Conn) error {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		n.bytesIn.Add(uint64(len(data)))
		logDebugPacket("recv", data)
		msg, err := packet.Decode(data)
		if err != nil {
			n.badPackets.Add(1)
			logError("net: %v", err)
			continue
		}
		n.deliver(msg)
	}
}

func (n *netClient) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client shutting down"))
			conn.SetReadDeadline(time.Now().Add(writeWait))
			return nil
		case b := <-n.out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				return err
			}
			n.bytesOut.Add(uint64(len(b)))
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
