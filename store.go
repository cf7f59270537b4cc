package ttbot

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
)

var voteBucket = []byte("votes")

// VoteRecord is one vote outcome as stored in the vote log.
type VoteRecord struct {
	SongID  string     `json:"song_id"`
	Song    string     `json:"song"`
	Artist  string     `json:"artist"`
	Option  VoteOption `json:"option"`
	Success bool       `json:"success"`
	Err     string     `json:"err,omitempty"`
	Time    time.Time  `json:"time"`
}

// VoteCounts summarizes the vote log.
type VoteCounts struct {
	Up     int
	Down   int
	Failed int
}

// VoteLog records vote outcomes in a bolt bucket, keyed by insertion order.
type VoteLog struct {
	db *bolt.DB
}

// NewVoteLog creates the votes bucket if it does not already exist.
func NewVoteLog(db *bolt.DB) (*VoteLog, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(voteBucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &VoteLog{db: db}, nil
}

// Record appends one vote outcome to the log.
func (l *VoteLog) Record(rec VoteRecord) error {
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(voteBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Counts tallies the logged outcomes.
func (l *VoteLog) Counts() (VoteCounts, error) {
	var counts VoteCounts
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(voteBucket).ForEach(func(_, v []byte) error {
			var rec VoteRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			switch {
			case !rec.Success:
				counts.Failed++
			case rec.Option == VoteDown:
				counts.Down++
			default:
				counts.Up++
			}
			return nil
		})
	})
	return counts, err
}

// Recent returns up to n of the most recent records, newest first.
func (l *VoteLog) Recent(n int) ([]VoteRecord, error) {
	var recs []VoteRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(voteBucket).Cursor()
		for k, v := c.Last(); k != nil && len(recs) < n; k, v = c.Prev() {
			var rec VoteRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}
