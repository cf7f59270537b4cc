package ttbot

import (
	"path/filepath"

	"github.com/boltdb/bolt"
	. "gopkg.in/check.v1"
)

type StoreSuite struct{}

var _ = Suite(&StoreSuite{})

func (s *StoreSuite) openLog(c *C) *VoteLog {
	db, err := bolt.Open(filepath.Join(c.MkDir(), "votes.db"), 0666, nil)
	c.Assert(err, IsNil)
	log, err := NewVoteLog(db)
	c.Assert(err, IsNil)
	return log
}

func (s *StoreSuite) TestRecordAndCounts(c *C) {
	log := s.openLog(c)
	defer log.db.Close()

	c.Assert(log.Record(VoteRecord{SongID: "s1", Option: VoteUp, Success: true}), IsNil)
	c.Assert(log.Record(VoteRecord{SongID: "s2", Option: VoteUp, Success: true}), IsNil)
	c.Assert(log.Record(VoteRecord{SongID: "s3", Option: VoteDown, Success: true}), IsNil)
	c.Assert(log.Record(VoteRecord{SongID: "s4", Option: VoteUp, Success: false, Err: "already voted"}), IsNil)

	counts, err := log.Counts()
	c.Assert(err, IsNil)
	c.Check(counts, Equals, VoteCounts{Up: 2, Down: 1, Failed: 1})
}

func (s *StoreSuite) TestRecentNewestFirst(c *C) {
	log := s.openLog(c)
	defer log.db.Close()

	for _, id := range []string{"s1", "s2", "s3"} {
		c.Assert(log.Record(VoteRecord{SongID: id, Option: VoteUp, Success: true}), IsNil)
	}
	recs, err := log.Recent(2)
	c.Assert(err, IsNil)
	c.Assert(recs, HasLen, 2)
	c.Check(recs[0].SongID, Equals, "s3")
	c.Check(recs[1].SongID, Equals, "s2")
}

func (s *StoreSuite) TestRecordStampsTime(c *C) {
	log := s.openLog(c)
	defer log.db.Close()

	c.Assert(log.Record(VoteRecord{SongID: "s1", Option: VoteUp, Success: true}), IsNil)
	recs, err := log.Recent(1)
	c.Assert(err, IsNil)
	c.Assert(recs, HasLen, 1)
	c.Check(recs[0].Time.IsZero(), Equals, false)
}
