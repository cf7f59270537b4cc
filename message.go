package ttbot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// VoteOption is the direction of a room vote.
type VoteOption string

const (
	// VoteUp marks the current song as awesome.
	VoteUp VoteOption = "up"
	// VoteDown marks the current song as lame.
	VoteDown VoteOption = "down"
)

// Event command names sent by the turntable chat server. Any command not
// listed here is still dispatched to handlers as a raw Event.
const (
	EventNewSong      = "newsong"
	EventEndSong      = "endsong"
	EventNoSong       = "nosong"
	EventSpeak        = "speak"
	EventUpdateVotes  = "update_votes"
	EventRegistered   = "registered"
	EventDeregistered = "deregistered"
	EventAddDJ        = "add_dj"
	EventRemDJ        = "rem_dj"
	EventSnagged      = "snagged"
)

var (
	// ErrMalformedReply is returned when a reply from the server does not
	// carry the fields the caller requires.
	ErrMalformedReply = errors.New("ttbot: malformed reply")
	// ErrClosed is returned by operations on a bot that has been stopped.
	ErrClosed = errors.New("ttbot: bot is closed")
)

// baseCommand carries the fields the chat server expects on every API call.
// Concrete commands embed it; the bot stamps it just before sending.
type baseCommand struct {
	API      string `json:"api"`
	MsgID    int    `json:"msgid"`
	ClientID string `json:"clientid"`
	UserID   string `json:"userid"`
	UserAuth string `json:"userauth"`
}

func (c *baseCommand) base() *baseCommand { return c }

// command is satisfied by every outgoing API call via the embedded
// baseCommand.
type command interface {
	base() *baseCommand
}

type authenticateCommand struct {
	baseCommand
	Client string `json:"client"`
}

type registerCommand struct {
	baseCommand
	RoomID string `json:"roomid"`
}

type roomInfoCommand struct {
	baseCommand
	RoomID string `json:"roomid"`
}

type voteCommand struct {
	baseCommand
	RoomID string `json:"roomid"`
	Val    string `json:"val"`
	VH     string `json:"vh"`
	TH     string `json:"th"`
	PH     string `json:"ph"`
}

type speakCommand struct {
	baseCommand
	RoomID string `json:"roomid"`
	Text   string `json:"text"`
}

type presenceCommand struct {
	baseCommand
	Status string `json:"status"`
}

type modifyNameCommand struct {
	baseCommand
	Name string `json:"name"`
}

// Reply is the server's answer to a single API call, correlated by msgid.
// Success is a pointer so that a reply missing the field can be told apart
// from an explicit false.
type Reply struct {
	MsgID   *int   `json:"msgid"`
	Success *bool  `json:"success"`
	Err     string `json:"err"`

	// Raw is the full reply payload for callers that need call-specific
	// fields (e.g. room.info).
	Raw json.RawMessage `json:"-"`
}

// VoteResult is the decoded outcome of a room.vote call.
type VoteResult struct {
	Success bool
	Err     string
}

// OK reports whether the reply carries an explicit success.
func (r *Reply) OK() bool {
	return r.Success != nil && *r.Success
}

// VoteResult decodes the reply as a vote outcome. A reply without a success
// field is malformed and yields an error rather than a guessed result.
func (r *Reply) VoteResult() (VoteResult, error) {
	if r.Success == nil {
		return VoteResult{}, fmt.Errorf("%w: missing success field", ErrMalformedReply)
	}
	return VoteResult{Success: *r.Success, Err: r.Err}, nil
}

// Event is a server-initiated message, identified by its command name. Raw
// holds the full payload; use Decode or the typed helpers to unpack it.
type Event struct {
	Command string
	Raw     json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Raw, v)
}

// Song describes a track as it appears inside room metadata.
type Song struct {
	ID       string `json:"_id"`
	Metadata struct {
		Song   string  `json:"song"`
		Artist string  `json:"artist"`
		Length float64 `json:"length"`
	} `json:"metadata"`
}

// User identifies a room occupant.
type User struct {
	ID   string `json:"userid"`
	Name string `json:"name"`
}

// NewSongEvent announces that room playback has advanced to a new track.
type NewSongEvent struct {
	Room struct {
		Metadata struct {
			CurrentSong Song   `json:"current_song"`
			CurrentDJ   string `json:"current_dj"`
		} `json:"metadata"`
	} `json:"room"`
}

// Song returns the track that just started.
func (e *NewSongEvent) Song() Song {
	return e.Room.Metadata.CurrentSong
}

// SpeakEvent is a chat message spoken in the room.
type SpeakEvent struct {
	UserID string `json:"userid"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

// UpdateVotesEvent carries the room's running vote tally.
type UpdateVotesEvent struct {
	Room struct {
		Metadata struct {
			Upvotes   int `json:"upvotes"`
			Downvotes int `json:"downvotes"`
			Listeners int `json:"listeners"`
		} `json:"metadata"`
	} `json:"room"`
}

// RegisteredEvent announces users entering the room.
type RegisteredEvent struct {
	Users []User `json:"user"`
}

// DecodeNewSong unpacks a newsong event.
func DecodeNewSong(e *Event) (*NewSongEvent, error) {
	if e.Command != EventNewSong {
		return nil, fmt.Errorf("ttbot: cannot decode %q as newsong", e.Command)
	}
	ev := &NewSongEvent{}
	if err := e.Decode(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeSpeak unpacks a speak event.
func DecodeSpeak(e *Event) (*SpeakEvent, error) {
	if e.Command != EventSpeak {
		return nil, fmt.Errorf("ttbot: cannot decode %q as speak", e.Command)
	}
	ev := &SpeakEvent{}
	if err := e.Decode(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// DecodeUpdateVotes unpacks an update_votes event.
func DecodeUpdateVotes(e *Event) (*UpdateVotesEvent, error) {
	if e.Command != EventUpdateVotes {
		return nil, fmt.Errorf("ttbot: cannot decode %q as update_votes", e.Command)
	}
	ev := &UpdateVotesEvent{}
	if err := e.Decode(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// roomInfoReply is the slice of a room.info reply the bot cares about: the
// song playing at the moment it joined.
type roomInfoReply struct {
	Room struct {
		Metadata struct {
			CurrentSong Song `json:"current_song"`
		} `json:"metadata"`
	} `json:"room"`
}
