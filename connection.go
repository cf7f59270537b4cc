package ttbot

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Connection is an interface primarily designed to allow for a mock
// connection during testing.
type Connection interface {
	Connect(b *Bot) error
	Send(b *Bot, frame string) error
	Receive(b *Bot, frames chan string)
	Close() error
}

// WSConnection is a type that satisfies the Connection interface and manages
// a websocket connection to a turntable chat server.
type WSConnection struct {
	conn *websocket.Conn
}

func (ws *WSConnection) connectOnce(b *Bot) error {
	b.Logger.Infof("Connecting to room %s...", b.cfg.RoomID)
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	url := fmt.Sprintf("wss://%s/socket.io/websocket", b.cfg.ChatHost)
	wsConn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	ws.conn = wsConn
	return nil
}

// Connect tries to connect to the chat server with multiple retries upon
// error. Authentication and room registration happen after the server's
// no_session greeting, driven by the bot's dispatcher.
func (ws *WSConnection) Connect(b *Bot) error {
	err := ws.connectOnce(b)
	if err == nil {
		return nil
	}
	b.Logger.Warnf("Error connecting on first try: %s", err)
	for count := 1; count < MAXRETRIES; count++ {
		time.Sleep(time.Duration(count) * time.Second * 5)
		err = ws.connectOnce(b)
		if err == nil {
			return nil
		}
		b.Logger.Warnf("Error connecting on retry #%d: %s", count, err)
	}
	b.Logger.Errorf("Error connecting to websocket: %s", err)
	return err
}

// Send writes one framed payload to the websocket connection.
func (ws *WSConnection) Send(b *Bot, frame string) error {
	if ws.conn == nil {
		if err := ws.Connect(b); err != nil {
			return err
		}
	}
	if err := ws.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		if err := ws.Connect(b); err != nil {
			return err
		}
		if err := ws.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			b.Logger.Warnf("Error writing frame: %s", err)
			return err
		}
	}
	return nil
}

// Receive reads one message from the websocket and delivers it on the
// provided channel. On read error it reconnects and delivers an empty
// message, which the dispatcher ignores.
func (ws *WSConnection) Receive(b *Bot, frames chan string) {
	if ws.conn == nil {
		if err := ws.Connect(b); err != nil {
			b.Logger.Errorf("Error connecting to chat server: %s", err)
			return
		}
	}
	_, data, err := ws.conn.ReadMessage()
	if err != nil {
		b.Logger.Warnf("Error reading frame, reconnecting: %s", err)
		if err := ws.Connect(b); err != nil {
			b.Logger.Errorf("Error reconnecting: %s", err)
		}
		if b.alive() {
			frames <- ""
		}
		return
	}
	if b.alive() {
		frames <- string(data)
	}
}

// Close simply closes the websocket connection, if it is connected.
func (ws *WSConnection) Close() error {
	if ws.conn == nil {
		return nil
	}
	return ws.conn.Close()
}
