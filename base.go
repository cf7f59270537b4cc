package ttbot

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// MAXRETRIES is the number of times to retry a connection to the chat
	// server.
	MAXRETRIES = 5

	// DefaultChatHost is the turntable chat endpoint used when the config
	// does not name one.
	DefaultChatHost = "chat1.turntable.fm:8080"

	presenceInterval = 10 * time.Second
)

func init() {
	logrus.SetLevel(logrus.WarnLevel)
}

// BotConfig controls the configuration of a new Bot when it is created by
// the user. UserID, UserAuth, and RoomID are the opaque credentials issued
// by the turntable service.
type BotConfig struct {
	UserID   string `yaml:"UserID"`
	UserAuth string `yaml:"UserAuth"`
	RoomID   string `yaml:"RoomID"`
	BotName  string `yaml:"BotName"`
	ChatHost string `yaml:"ChatHost"`
	DbPath   string `yaml:"DbPath"`

	// Conn overrides the websocket connection, primarily for tests.
	Conn Connection `yaml:"-"`
}

type replyFunc func(*Reply)

// Bot holds one authenticated session in one turntable room. It runs send,
// receive, and dispatch goroutines, correlates command replies by msgid, and
// fans events out to registered handlers.
//
// Bot exposes a bolt database for the use of handlers; the vote log lives in
// its own bucket, so handlers should pick distinct bucket names.
type Bot struct {
	cfg      BotConfig
	clientID string
	conn     Connection
	Logger   *logrus.Logger
	DB       *bolt.DB

	votes *VoteLog

	outbound chan string
	inbound  chan string

	mu      sync.Mutex
	msgID   int
	pending map[int]replyFunc
	subs    []subEntry
	nextSub int
	current Song
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a bot for the given room. It validates the credentials, opens
// the bolt DB if a path is configured, and prepares a websocket connection;
// nothing is sent until Run.
func New(cfg BotConfig) (*Bot, error) {
	if cfg.UserID == "" || cfg.UserAuth == "" || cfg.RoomID == "" {
		return nil, errors.New("ttbot: UserID, UserAuth, and RoomID are required")
	}
	if cfg.ChatHost == "" {
		cfg.ChatHost = DefaultChatHost
	}
	if cfg.Conn == nil {
		cfg.Conn = &WSConnection{}
	}
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	var (
		db    *bolt.DB
		votes *VoteLog
		err   error
	)
	if cfg.DbPath != "" {
		db, err = bolt.Open(cfg.DbPath, 0666, nil)
		if err != nil {
			return nil, err
		}
		votes, err = NewVoteLog(db)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Bot{
		cfg:      cfg,
		clientID: fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.NewString()),
		conn:     cfg.Conn,
		Logger:   logger,
		DB:       db,
		votes:    votes,
		outbound: make(chan string, 5),
		inbound:  make(chan string, 5),
		pending:  make(map[int]replyFunc),
	}, nil
}

// Name returns the configured bot name.
func (b *Bot) Name() string { return b.cfg.BotName }

// RoomID returns the room this bot is registered in.
func (b *Bot) RoomID() string { return b.cfg.RoomID }

// Votes returns the bolt-backed vote log, or nil when no DbPath was
// configured.
func (b *Bot) Votes() *VoteLog { return b.votes }

// CurrentSong returns the song the room is playing, as of the last newsong
// event or room.info reply.
func (b *Bot) CurrentSong() Song {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Bot) setCurrentSong(s Song) {
	b.mu.Lock()
	b.current = s
	b.mu.Unlock()
}

func (b *Bot) alive() bool {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()
	return ctx != nil && ctx.Err() == nil
}

// Run connects to the chat server and starts the send, receive, dispatch,
// and presence goroutines. It blocks until the context is cancelled, Stop is
// called, or the session fails.
func (b *Bot) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.ctx = runCtx
	b.cancel = cancel
	b.mu.Unlock()
	defer cancel()

	if err := b.conn.Connect(b); err != nil {
		return fmt.Errorf("ttbot: connecting to room %s: %w", b.cfg.RoomID, err)
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return b.sendLoop(gctx) })
	g.Go(func() error { return b.recvLoop(gctx) })
	g.Go(func() error { return b.dispatcher(gctx) })
	g.Go(func() error { return b.presenceLoop(gctx) })

	for _, h := range b.handlers() {
		go h.Run(b)
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ttbot: fatal error in room %s: %w", b.cfg.RoomID, err)
	}
	return nil
}

// Stop notifies handlers, cancels the session, closes the connection, and
// closes the database. It is safe to call more than once.
func (b *Bot) Stop() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	hs := make([]Handler, len(b.subs))
	for i, s := range b.subs {
		hs[i] = s.h
	}
	cancel := b.cancel
	b.mu.Unlock()

	for _, h := range hs {
		h.Stop(b)
	}
	if cancel != nil {
		cancel()
	}
	err := b.conn.Close()
	if b.DB != nil {
		if dbErr := b.DB.Close(); err == nil {
			err = dbErr
		}
	}
	return err
}

func (b *Bot) sendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-b.outbound:
			b.Logger.Debugf("Sending frame: %s", frame)
			if err := b.conn.Send(b, frame); err != nil {
				b.Logger.Errorf("Error sending frame: %s", err)
				return err
			}
		}
	}
}

func (b *Bot) recvLoop(ctx context.Context) error {
	for {
		frames := make(chan string, 1)
		go b.conn.Receive(b, frames)
		select {
		case <-ctx.Done():
			return nil
		case raw := <-frames:
			select {
			case b.inbound <- raw:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (b *Bot) dispatcher(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-b.inbound:
			if raw == "" {
				continue
			}
			payloads, err := decodeFrames(raw)
			if err != nil {
				b.Logger.Warnf("Dropping undecodable message: %s", err)
				continue
			}
			for _, p := range payloads {
				b.handlePayload(p)
			}
		}
	}
}

func (b *Bot) presenceLoop(ctx context.Context) error {
	ticker := time.NewTicker(presenceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.call("presence.update", &presenceCommand{Status: "available"}, nil)
		}
	}
}

func (b *Bot) handlePayload(payload string) {
	switch {
	case isHeartbeat(payload):
		b.Logger.Debugln("Answering heartbeat...")
		b.queueFrame(encodeFrame(payload))
	case isNoSession(payload):
		b.Logger.Debugln("Session opened, authenticating...")
		b.authenticate()
	default:
		b.handleJSON(payload)
	}
}

func (b *Bot) handleJSON(payload string) {
	var probe struct {
		MsgID   *int   `json:"msgid"`
		Command string `json:"command"`
	}
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		b.Logger.Warnf("Dropping undecodable payload: %s", err)
		return
	}
	switch {
	case probe.Command != "":
		b.dispatchEvent(&Event{Command: probe.Command, Raw: json.RawMessage(payload)})
	case probe.MsgID != nil:
		reply := &Reply{}
		if err := json.Unmarshal([]byte(payload), reply); err != nil {
			b.Logger.Warnf("Dropping undecodable reply: %s", err)
			return
		}
		reply.Raw = json.RawMessage(payload)
		b.dispatchReply(reply)
	default:
		b.Logger.Debugf("Ignoring payload with neither command nor msgid: %s", payload)
	}
}

func (b *Bot) dispatchEvent(e *Event) {
	b.Logger.Debugf("Dispatching %s event", e.Command)
	if e.Command == EventNewSong {
		if ev, err := DecodeNewSong(e); err == nil {
			b.setCurrentSong(ev.Song())
		} else {
			b.Logger.Warnf("Malformed newsong event: %s", err)
		}
	}
	for _, h := range b.handlers() {
		if err := h.HandleEvent(b, e); err != nil {
			b.Logger.Warnf("Handler error on %s event: %s", e.Command, err)
		}
	}
}

func (b *Bot) dispatchReply(r *Reply) {
	b.mu.Lock()
	cb, ok := b.pending[*r.MsgID]
	if ok {
		delete(b.pending, *r.MsgID)
	}
	b.mu.Unlock()
	if !ok {
		b.Logger.Debugf("Reply for unknown msgid %d", *r.MsgID)
		return
	}
	cb(r)
}

// queueFrame hands a frame to the send loop without blocking the caller.
func (b *Bot) queueFrame(frame string) {
	go func() {
		b.outbound <- frame
	}()
}

// call stamps a command with the session identity and the next msgid, queues
// it, and registers the reply callback. It reports whether the command was
// queued; a closed bot queues nothing.
func (b *Bot) call(api string, c command, cb replyFunc) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.msgID++
	id := b.msgID
	bc := c.base()
	bc.API = api
	bc.MsgID = id
	bc.ClientID = b.clientID
	bc.UserID = b.cfg.UserID
	bc.UserAuth = b.cfg.UserAuth
	if cb != nil {
		b.pending[id] = cb
	}
	b.mu.Unlock()

	data, err := json.Marshal(c)
	if err != nil {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
		b.Logger.Errorf("Error marshalling %s command: %s", api, err)
		return false
	}
	b.queueFrame(encodeFrame(string(data)))
	return true
}

func (b *Bot) authenticate() {
	b.call("user.authenticate", &authenticateCommand{Client: "web"}, func(r *Reply) {
		if !r.OK() {
			b.Logger.Errorf("Authentication failed: %s", r.Err)
			b.cancel()
			return
		}
		b.Logger.Infoln("Authenticated, joining room...")
		if b.cfg.BotName != "" {
			b.call("user.modify", &modifyNameCommand{Name: b.cfg.BotName}, nil)
		}
		b.registerRoom()
	})
}

func (b *Bot) registerRoom() {
	b.call("room.register", &registerCommand{RoomID: b.cfg.RoomID}, func(r *Reply) {
		if !r.OK() {
			b.Logger.Errorf("Could not join room %s: %s", b.cfg.RoomID, r.Err)
			b.cancel()
			return
		}
		b.Logger.Infof("Joined room %s", b.cfg.RoomID)
		b.refreshRoomInfo()
	})
}

// refreshRoomInfo asks the server for the room state so the bot knows the
// song that was already playing when it joined.
func (b *Bot) refreshRoomInfo() {
	b.call("room.info", &roomInfoCommand{RoomID: b.cfg.RoomID}, func(r *Reply) {
		if !r.OK() {
			b.Logger.Warnf("Could not fetch room info: %s", r.Err)
			return
		}
		info := &roomInfoReply{}
		if err := json.Unmarshal(r.Raw, info); err != nil {
			b.Logger.Warnf("Malformed room info reply: %s", err)
			return
		}
		b.setCurrentSong(info.Room.Metadata.CurrentSong)
	})
}

// Vote submits an asynchronous vote on the current song. The callback, if
// non-nil, is invoked exactly once: with the decoded outcome, or with an
// error when the reply is malformed or the bot is closed before the vote can
// be queued.
func (b *Bot) Vote(option VoteOption, cb func(VoteResult, error)) {
	song := b.CurrentSong()
	cmd := &voteCommand{
		RoomID: b.cfg.RoomID,
		Val:    string(option),
		VH:     voteHash(b.cfg.RoomID, option, song.ID),
		TH:     obscureHash(),
		PH:     obscureHash(),
	}
	queued := b.call("room.vote", cmd, func(r *Reply) {
		if cb == nil {
			return
		}
		res, err := r.VoteResult()
		cb(res, err)
	})
	if !queued && cb != nil {
		cb(VoteResult{}, ErrClosed)
	}
}

// Bop upvotes the current song and logs a failed outcome.
func (b *Bot) Bop() {
	b.Vote(VoteUp, func(res VoteResult, err error) {
		if err != nil {
			b.Logger.Warnf("Bop failed: %s", err)
			return
		}
		if !res.Success {
			b.Logger.Warnf("Bop rejected: %s", res.Err)
		}
	})
}

// Speak sends a chat message to the room.
func (b *Bot) Speak(text string) {
	b.Logger.Debugf("Speaking: %s", text)
	b.call("room.speak", &speakCommand{RoomID: b.cfg.RoomID, Text: text}, nil)
}

// The vote hash binds a vote to the room, direction, and song; the other two
// hashes only need to be well-formed hex digests.
func voteHash(roomID string, option VoteOption, songID string) string {
	return sha1hex(roomID + string(option) + songID)
}

func obscureHash() string {
	return sha1hex(uuid.NewString())
}

func sha1hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
