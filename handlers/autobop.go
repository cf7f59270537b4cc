// Package handlers provides several pre-baked ttbot.Handlers for
// convenience.
package handlers

import (
	"fmt"
	"io"
	"os"
	"sync"

	ttbot "github.com/nmalaguti/Turntable-API-sharp"
)

// Autobop upvotes every song as it starts and reports each outcome with a
// single status line. Each newsong event is handled independently; no state
// is carried between songs, so overlapping outcomes only contend on the
// output writer.
type Autobop struct {
	// Out receives one line per vote outcome. Defaults to os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// HandleEvent issues exactly one upvote per newsong event.
func (a *Autobop) HandleEvent(b *ttbot.Bot, e *ttbot.Event) error {
	if e.Command != ttbot.EventNewSong {
		return nil
	}
	ev, err := ttbot.DecodeNewSong(e)
	if err != nil {
		return err
	}
	song := ev.Song()
	b.Vote(ttbot.VoteUp, func(res ttbot.VoteResult, err error) {
		a.report(res, err)
		a.record(b, song, res, err)
	})
	return nil
}

func (a *Autobop) report(res ttbot.VoteResult, err error) {
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case err != nil:
		fmt.Fprintf(out, "Could not vote: %s.\n", err)
	case res.Success:
		fmt.Fprintln(out, "Voted awesome")
	default:
		fmt.Fprintf(out, "Could not vote: %s.\n", res.Err)
	}
}

func (a *Autobop) record(b *ttbot.Bot, song ttbot.Song, res ttbot.VoteResult, voteErr error) {
	log := b.Votes()
	if log == nil {
		return
	}
	rec := ttbot.VoteRecord{
		SongID:  song.ID,
		Song:    song.Metadata.Song,
		Artist:  song.Metadata.Artist,
		Option:  ttbot.VoteUp,
		Success: voteErr == nil && res.Success,
		Err:     res.Err,
	}
	if voteErr != nil {
		rec.Err = voteErr.Error()
	}
	if err := log.Record(rec); err != nil {
		b.Logger.Warnf("Error recording vote: %s", err)
	}
}

// Run is a no-op- the Autobop handler only reacts to incoming events.
func (a *Autobop) Run(b *ttbot.Bot) {}

// Stop is also a no-op- there is nothing to stop.
func (a *Autobop) Stop(b *ttbot.Bot) {}
