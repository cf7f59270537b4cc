package ttbot

import (
	. "gopkg.in/check.v1"
)

type CodecSuite struct{}

var _ = Suite(&CodecSuite{})

func (s *CodecSuite) TestEncodeFrame(c *C) {
	c.Check(encodeFrame("no_session"), Equals, "~m~10~m~no_session")
	c.Check(encodeFrame(""), Equals, "~m~0~m~")
}

func (s *CodecSuite) TestDecodeSingleFrame(c *C) {
	payloads, err := decodeFrames("~m~10~m~no_session")
	c.Assert(err, IsNil)
	c.Check(payloads, DeepEquals, []string{"no_session"})
}

func (s *CodecSuite) TestDecodeMultipleFrames(c *C) {
	data := encodeFrame(`{"msgid":1}`) + encodeFrame("~h~2")
	payloads, err := decodeFrames(data)
	c.Assert(err, IsNil)
	c.Check(payloads, DeepEquals, []string{`{"msgid":1}`, "~h~2"})
}

func (s *CodecSuite) TestDecodeRoundTrip(c *C) {
	payload := `{"command":"newsong","room":{}}`
	payloads, err := decodeFrames(encodeFrame(payload))
	c.Assert(err, IsNil)
	c.Check(payloads, DeepEquals, []string{payload})
}

func (s *CodecSuite) TestDecodeBadFrames(c *C) {
	for _, data := range []string{
		"",
		"no marker",
		"~m~",
		"~m~abc~m~xyz",
		"~m~10~m~short",
		"~m~-1~m~",
	} {
		_, err := decodeFrames(data)
		c.Check(err, NotNil, Commentf("data: %q", data))
	}
}

func (s *CodecSuite) TestHeartbeatDetection(c *C) {
	c.Check(isHeartbeat("~h~1"), Equals, true)
	c.Check(isHeartbeat("no_session"), Equals, false)
	c.Check(isNoSession("no_session"), Equals, true)
	c.Check(isNoSession("~h~1"), Equals, false)
}
