package handlers

import (
	"fmt"
	"strings"
	"time"

	. "gopkg.in/check.v1"

	ttbot "github.com/nmalaguti/Turntable-API-sharp"
)

// chanWriter turns each write into a message on a channel, so tests can wait
// for the Autobop status lines.
type chanWriter struct {
	lines chan string
}

func (w *chanWriter) Write(p []byte) (int, error) {
	w.lines <- string(p)
	return len(p), nil
}

func recvLine(c *C, w *chanWriter) string {
	select {
	case l := <-w.lines:
		return l
	case <-time.After(5 * time.Second):
		c.Fatal("timed out waiting for a status line")
	}
	return ""
}

func replyFrame(msgID int, body string) string {
	payload := fmt.Sprintf(`{"msgid":%d,%s}`, msgID, body)
	return frame(payload)
}

type AutobopSuite struct{}

var _ = Suite(&AutobopSuite{})

func (s *AutobopSuite) TestVotedAwesome(c *C) {
	out := &chanWriter{lines: make(chan string, 16)}
	b, conn := runBot(c, &Autobop{Out: out})
	defer b.Stop()

	conn.incoming <- newSongFrame("song1", "Roundabout", "Yes")
	cmd := recvCommand(c, conn)
	c.Check(cmd["api"], Equals, "room.vote")
	c.Check(cmd["val"], Equals, "up")

	conn.incoming <- replyFrame(int(cmd["msgid"].(float64)), `"success":true`)
	c.Check(recvLine(c, out), Equals, "Voted awesome\n")
	expectSilence(c, conn)
}

func (s *AutobopSuite) TestVoteRejected(c *C) {
	out := &chanWriter{lines: make(chan string, 16)}
	b, conn := runBot(c, &Autobop{Out: out})
	defer b.Stop()

	conn.incoming <- newSongFrame("song1", "Roundabout", "Yes")
	cmd := recvCommand(c, conn)
	conn.incoming <- replyFrame(int(cmd["msgid"].(float64)), `"success":false,"err":"already voted"`)

	line := recvLine(c, out)
	c.Check(line, Equals, "Could not vote: already voted.\n")
}

func (s *AutobopSuite) TestMalformedReply(c *C) {
	out := &chanWriter{lines: make(chan string, 16)}
	b, conn := runBot(c, &Autobop{Out: out})
	defer b.Stop()

	conn.incoming <- newSongFrame("song1", "Roundabout", "Yes")
	cmd := recvCommand(c, conn)
	conn.incoming <- replyFrame(int(cmd["msgid"].(float64)), `"room":{}`)

	line := recvLine(c, out)
	c.Check(strings.HasPrefix(line, "Could not vote:"), Equals, true, Commentf("line: %q", line))
	c.Check(strings.Contains(line, "malformed"), Equals, true, Commentf("line: %q", line))
}

func (s *AutobopSuite) TestOneVotePerSong(c *C) {
	out := &chanWriter{lines: make(chan string, 16)}
	b, conn := runBot(c, &Autobop{Out: out})
	defer b.Stop()

	conn.incoming <- newSongFrame("song1", "Roundabout", "Yes")
	first := recvCommand(c, conn)
	c.Check(first["api"], Equals, "room.vote")

	conn.incoming <- newSongFrame("song2", "Starship Trooper", "Yes")
	second := recvCommand(c, conn)
	c.Check(second["api"], Equals, "room.vote")

	// Exactly two votes, each correlated to its own result. Answer the
	// second vote first to prove the correlation is by msgid, not arrival
	// order.
	conn.incoming <- replyFrame(int(second["msgid"].(float64)), `"success":false,"err":"already voted"`)
	c.Check(recvLine(c, out), Equals, "Could not vote: already voted.\n")
	conn.incoming <- replyFrame(int(first["msgid"].(float64)), `"success":true`)
	c.Check(recvLine(c, out), Equals, "Voted awesome\n")
	expectSilence(c, conn)
}

func (s *AutobopSuite) TestIgnoresOtherEvents(c *C) {
	out := &chanWriter{lines: make(chan string, 16)}
	b, conn := runBot(c, &Autobop{Out: out})
	defer b.Stop()

	conn.incoming <- speakFrame("dj", "hello room")
	expectSilence(c, conn)
}

func (s *AutobopSuite) TestRecordsOutcome(c *C) {
	out := &chanWriter{lines: make(chan string, 16)}
	b, conn := runBot(c, &Autobop{Out: out})
	defer b.Stop()

	conn.incoming <- newSongFrame("song1", "Roundabout", "Yes")
	cmd := recvCommand(c, conn)
	conn.incoming <- replyFrame(int(cmd["msgid"].(float64)), `"success":true`)
	recvLine(c, out)

	var counts ttbot.VoteCounts
	for i := 0; i < 100; i++ {
		var err error
		counts, err = b.Votes().Counts()
		c.Assert(err, IsNil)
		if counts.Up > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Check(counts, Equals, ttbot.VoteCounts{Up: 1})
}
