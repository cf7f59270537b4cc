package ttbot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// The chat server frames every payload as "~m~<length>~m~<payload>".
// Heartbeats use the payload "~h~<n>" and must be echoed back verbatim; the
// very first payload after connecting is "no_session".
const (
	frameMarker      = "~m~"
	heartbeatMarker  = "~h~"
	noSessionPayload = "no_session"
)

// ErrBadFrame is returned when incoming data does not follow the
// ~m~<length>~m~<payload> framing.
var ErrBadFrame = errors.New("ttbot: bad frame")

// encodeFrame wraps a payload in the server's length-prefixed framing.
func encodeFrame(payload string) string {
	return fmt.Sprintf("%s%d%s%s", frameMarker, len(payload), frameMarker, payload)
}

// decodeFrames splits raw socket data into its framed payloads. A single
// websocket message may carry more than one frame.
func decodeFrames(data string) ([]string, error) {
	var payloads []string
	rest := data
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, frameMarker) {
			return nil, fmt.Errorf("%w: missing %q prefix", ErrBadFrame, frameMarker)
		}
		rest = rest[len(frameMarker):]
		end := strings.Index(rest, frameMarker)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated length", ErrBadFrame)
		}
		n, err := strconv.Atoi(rest[:end])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad length %q", ErrBadFrame, rest[:end])
		}
		rest = rest[end+len(frameMarker):]
		if len(rest) < n {
			return nil, fmt.Errorf("%w: truncated payload", ErrBadFrame)
		}
		payloads = append(payloads, rest[:n])
		rest = rest[n:]
	}
	if payloads == nil {
		return nil, fmt.Errorf("%w: empty message", ErrBadFrame)
	}
	return payloads, nil
}

// isHeartbeat reports whether a payload is a server heartbeat.
func isHeartbeat(payload string) bool {
	return strings.HasPrefix(payload, heartbeatMarker)
}

// isNoSession reports whether a payload is the post-connect greeting.
func isNoSession(payload string) bool {
	return payload == noSessionPayload
}
