// Package ttbot provides a golang client for bots running on the turntable
// music-room service.
//
// A Bot holds one authenticated session in one room. It answers the server's
// heartbeats, correlates command replies by msgid, and fans typed events out
// to registered handlers. The Handler interface lets the user write code
// that reacts to incoming events and also runs in the background; AddHandler
// returns a Subscription so a handler's lifetime is explicit and it can be
// removed again.
//
// A bolt database is exposed by the bot for the use of handlers. The client
// itself only writes to the vote log bucket, so handlers may store their own
// state under other bucket names without fear of collisions.
//
// A small set of handlers is included in the handlers package. The Autobop
// handler upvotes every song as it starts and reports each outcome. The
// program in the sample package uses it to create a simple, functioning bot.
package ttbot
