// Package a2s implements the Source Engine Query (A2S) protocol engine:
// request construction, the challenge round trip, and A2S_INFO decoding.
package a2s

import (
	"fmt"
	"strings"
)

// Packet headers and response type codes.
const (
	headerSize = 4

	// typeOffset is the position of the response type byte in any reply.
	typeOffset = headerSize

	A2SInfo   byte = 0x54
	A2SPlayer byte = 0x55
	A2SRules  byte = 0x56
	A2APing   byte = 0x69

	S2CChallenge byte = 0x41
	S2AInfo      byte = 0x49
	S2APlayer    byte = 0x44
	S2ARules     byte = 0x45
	A2APingReply byte = 0x6A
)

// infoPayload follows the A2S_INFO header byte.
const infoPayload = "Source Engine Query\x00"

var magic = [headerSize]byte{0xFF, 0xFF, 0xFF, 0xFF}

// Kind selects which query is sent to the server.
type Kind uint8

// Supported request kinds.
const (
	KindInfo Kind = iota
	KindPlayer
	KindRules
	KindPing
)

var kindNames = [...]string{
	KindInfo:   "info",
	KindPlayer: "player",
	KindRules:  "rules",
	KindPing:   "ping",
}

// Header returns the request header byte of the kind.
func (k Kind) Header() byte {
	switch k {
	case KindPlayer:
		return A2SPlayer
	case KindRules:
		return A2SRules
	case KindPing:
		return A2APing
	default:
		return A2SInfo
	}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a kind name (info, player, rules, ping) into a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}

	return 0, fmt.Errorf("unknown request kind %q", s)
}
