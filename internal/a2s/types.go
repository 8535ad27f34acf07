package a2s

import (
	"strings"

	"github.com/leighmacdonald/steamid/v2/steamid"
)

// ServerType is the kind of server process answering the query.
type ServerType uint8

// Server types.
const (
	ServerTypeDedicated ServerType = iota
	ServerTypeListen
	ServerTypeSourceTV
)

// Wire values of server types. Anything unknown is read as SourceTV.
const (
	serverTypeDedicatedByte byte = 0x64 // d
	serverTypeListenByte    byte = 0x6c // l
	serverTypeSourceTVByte  byte = 0x70 // p
)

func parseServerType(b byte) ServerType {
	switch b {
	case serverTypeDedicatedByte:
		return ServerTypeDedicated
	case serverTypeListenByte:
		return ServerTypeListen
	default:
		return ServerTypeSourceTV
	}
}

func (t ServerType) wire() byte {
	switch t {
	case ServerTypeDedicated:
		return serverTypeDedicatedByte
	case ServerTypeListen:
		return serverTypeListenByte
	default:
		return serverTypeSourceTVByte
	}
}

func (t ServerType) String() string {
	switch t {
	case ServerTypeDedicated:
		return "dedicated"
	case ServerTypeListen:
		return "listen"
	default:
		return "sourcetv"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ServerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Environment is the operating system of the server.
type Environment uint8

// Environments.
const (
	EnvironmentLinux Environment = iota
	EnvironmentWindows
	EnvironmentMac
)

// Wire values of environments. Anything unknown is read as mac.
const (
	environmentLinuxByte   byte = 0x6c // l
	environmentWindowsByte byte = 0x77 // w
	environmentMacByte     byte = 0x6d // m
)

func parseEnvironment(b byte) Environment {
	switch b {
	case environmentLinuxByte:
		return EnvironmentLinux
	case environmentWindowsByte:
		return EnvironmentWindows
	default:
		return EnvironmentMac
	}
}

func (e Environment) wire() byte {
	switch e {
	case EnvironmentLinux:
		return environmentLinuxByte
	case EnvironmentWindows:
		return environmentWindowsByte
	default:
		return environmentMacByte
	}
}

func (e Environment) String() string {
	switch e {
	case EnvironmentLinux:
		return "linux"
	case EnvironmentWindows:
		return "windows"
	default:
		return "mac"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Extra Data Flags of an A2S_INFO reply.
const (
	EDFPort     byte = 0x80
	EDFSteamID  byte = 0x10
	EDFSourceTV byte = 0x40
	EDFKeywords byte = 0x20
	EDFGameID   byte = 0x01
)

// SourceTV describes the spectator relay advertised by the server.
type SourceTV struct {
	Name string `json:"name"`
	Port uint16 `json:"port"`
}

// ServerInfo is a decoded A2S_INFO reply.
// Optional fields are nil unless the matching EDF bit is set.
type ServerInfo struct {
	// betteralign:ignore

	Name        string      `json:"name"`
	Map         string      `json:"map"`
	Folder      string      `json:"folder"`
	Game        string      `json:"game"`
	Version     string      `json:"version"`
	AppID       uint16      `json:"app_id"`
	Protocol    uint8       `json:"protocol"`
	Players     uint8       `json:"players"`
	MaxPlayers  uint8       `json:"max_players"`
	Bots        uint8       `json:"bots"`
	ServerType  ServerType  `json:"server_type"`
	Environment Environment `json:"environment"`
	Visibility  bool        `json:"visibility"`
	VAC         bool        `json:"vac"`
	EDF         uint8       `json:"edf"`

	GamePort *uint16        `json:"game_port,omitempty"`
	SteamID  *steamid.SID64 `json:"steam_id,omitempty"`
	SourceTV *SourceTV      `json:"source_tv,omitempty"`
	Keywords *string        `json:"keywords,omitempty"`
	GameID   *uint64        `json:"game_id,omitempty"`
}

// Tags splits the keywords string on commas, dropping empty entries.
func (i *ServerInfo) Tags() []string {
	if i.Keywords == nil {
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(*i.Keywords, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return tags
}
