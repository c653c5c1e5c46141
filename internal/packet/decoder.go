// Package packet decodes single lines of a Betfair marketdata stream into
// bfdata.Packet values.
package packet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hubamatyas/ladderbuilder/internal/bfdata"
)

// ErrMalformedPacket is returned when a line cannot be treated as a valid
// single-market packet: pt is missing, mc is absent/empty, or mc carries
// more than one market. Handling multiple markets in one file is out of
// scope.
var ErrMalformedPacket = errors.New("packet: malformed")

// Decode parses one line of the stream into a Packet.
func Decode(line []byte) (bfdata.Packet, error) {
	var pkt bfdata.Packet
	if err := json.Unmarshal(line, &pkt); err != nil {
		return bfdata.Packet{}, fmt.Errorf("%w: invalid json: %v", ErrMalformedPacket, err)
	}

	raw := map[string]any{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return bfdata.Packet{}, fmt.Errorf("%w: invalid json: %v", ErrMalformedPacket, err)
	}
	pkt.Raw = raw

	if _, ok := raw["pt"]; !ok {
		return bfdata.Packet{}, fmt.Errorf("%w: missing pt", ErrMalformedPacket)
	}
	if len(pkt.MC) == 0 {
		return bfdata.Packet{}, fmt.Errorf("%w: missing or empty mc", ErrMalformedPacket)
	}
	if len(pkt.MC) != 1 {
		return bfdata.Packet{}, fmt.Errorf("%w: %d markets in one packet, expected 1", ErrMalformedPacket, len(pkt.MC))
	}

	return pkt, nil
}
