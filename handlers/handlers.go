package handlers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	ttbot "github.com/nmalaguti/Turntable-API-sharp"
)

// PingHandler responds to a chat message of "!ping" with "pong!".
type PingHandler struct{}

// HandleEvent satisfies the Handler interface.
func (ph *PingHandler) HandleEvent(b *ttbot.Bot, e *ttbot.Event) error {
	if e.Command != ttbot.EventSpeak {
		return nil
	}
	payload, err := ttbot.DecodeSpeak(e)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(payload.Text, "!ping") {
		return nil
	}
	if strings.Contains(payload.Text, "@") && payload.Text != "!ping @"+b.Name() {
		return nil
	}
	b.Logger.Debugln("Sending !ping reply...")
	b.Speak("pong!")
	return nil
}

// Run is a no-op- the PingHandler does not need to run continuously, only in
// response to an incoming event.
func (ph *PingHandler) Run(b *ttbot.Bot) {}

// Stop is also a no-op- there is nothing to stop.
func (ph *PingHandler) Stop(b *ttbot.Bot) {}

// StatsHandler records the time when the bot goes up and responds to !stats
// with the uptime and the tally from the vote log.
type StatsHandler struct {
	mu sync.Mutex
	t0 time.Time
}

// Run simply records the time.
func (s *StatsHandler) Run(b *ttbot.Bot) {
	s.mu.Lock()
	s.t0 = time.Now()
	s.mu.Unlock()
}

func (s *StatsHandler) since() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t0
}

// HandleEvent checks chat messages for !stats or !stats @[BotName] and
// responds with the uptime and vote counts.
func (s *StatsHandler) HandleEvent(b *ttbot.Bot, e *ttbot.Event) error {
	if e.Command != ttbot.EventSpeak {
		return nil
	}
	payload, err := ttbot.DecodeSpeak(e)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(payload.Text, "!stats") {
		return nil
	}
	if payload.Text != "!stats" && payload.Text != "!stats @"+b.Name() {
		return nil
	}
	reply := fmt.Sprintf("This bot has been up since %s.", humanize.Time(s.since()))
	if log := b.Votes(); log != nil {
		counts, err := log.Counts()
		if err != nil {
			return err
		}
		reply = fmt.Sprintf("%s Votes cast: %d awesome, %d lame, %d failed.",
			reply, counts.Up, counts.Down, counts.Failed)
	}
	b.Speak(reply)
	return nil
}

// Stop is a no-op.
func (s *StatsHandler) Stop(b *ttbot.Bot) {}
