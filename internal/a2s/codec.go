package a2s

import (
	"encoding/binary"

	"github.com/leighmacdonald/steamid/v2/steamid"
)

// BuildRequest returns a new request packet for the kind.
func BuildRequest(kind Kind) []byte {
	packet := make([]byte, 0, headerSize+1+len(infoPayload))
	packet = append(packet, magic[:]...)
	packet = append(packet, kind.Header())

	if kind == KindInfo {
		packet = append(packet, infoPayload...)
	}

	return packet
}

// edfField decodes and encodes one optional A2S_INFO field.
type edfField struct {
	decode func(c *cursor, info *ServerInfo) error
	encode func(dst []byte, info *ServerInfo) []byte
	flag   byte
}

// edfFields lists optional fields in wire order. The order is fixed by the
// protocol and unrelated to the numeric value of the flags.
var edfFields = []edfField{
	{
		flag: EDFPort,
		decode: func(c *cursor, info *ServerInfo) error {
			port, err := c.u16("game port")
			if err != nil {
				return err
			}
			info.GamePort = &port
			return nil
		},
		encode: func(dst []byte, info *ServerInfo) []byte {
			return binary.LittleEndian.AppendUint16(dst, deref(info.GamePort))
		},
	},
	{
		flag: EDFSteamID,
		decode: func(c *cursor, info *ServerInfo) error {
			id, err := c.u64("steam id")
			if err != nil {
				return err
			}
			sid := steamid.SID64(id)
			info.SteamID = &sid
			return nil
		},
		encode: func(dst []byte, info *ServerInfo) []byte {
			var id uint64
			if info.SteamID != nil {
				id = uint64(*info.SteamID)
			}
			return binary.LittleEndian.AppendUint64(dst, id)
		},
	},
	{
		flag: EDFSourceTV,
		decode: func(c *cursor, info *ServerInfo) error {
			port, err := c.u16("sourcetv port")
			if err != nil {
				return err
			}
			name, err := c.cstring("sourcetv name")
			if err != nil {
				return err
			}
			info.SourceTV = &SourceTV{Port: port, Name: name}
			return nil
		},
		encode: func(dst []byte, info *ServerInfo) []byte {
			tv := SourceTV{}
			if info.SourceTV != nil {
				tv = *info.SourceTV
			}
			dst = binary.LittleEndian.AppendUint16(dst, tv.Port)
			return appendCString(dst, tv.Name)
		},
	},
	{
		flag: EDFKeywords,
		decode: func(c *cursor, info *ServerInfo) error {
			keywords, err := c.cstring("keywords")
			if err != nil {
				return err
			}
			info.Keywords = &keywords
			return nil
		},
		encode: func(dst []byte, info *ServerInfo) []byte {
			return appendCString(dst, deref(info.Keywords))
		},
	},
	{
		flag: EDFGameID,
		decode: func(c *cursor, info *ServerInfo) error {
			id, err := c.u64("game id")
			if err != nil {
				return err
			}
			info.GameID = &id
			return nil
		},
		encode: func(dst []byte, info *ServerInfo) []byte {
			return binary.LittleEndian.AppendUint64(dst, deref(info.GameID))
		},
	},
}

// DecodeInfo parses an A2S_INFO reply, including its 5 byte header.
func DecodeInfo(buf []byte) (*ServerInfo, error) {
	if len(buf) <= typeOffset {
		return nil, &MalformedError{Field: "header", Offset: 0, Width: typeOffset + 1, Len: len(buf)}
	}
	if buf[typeOffset] != S2AInfo {
		return nil, &ProtocolError{Expected: S2AInfo, Actual: buf[typeOffset]}
	}

	var (
		info ServerInfo
		err  error
		b    byte
	)
	c := newCursor(buf, typeOffset+1)

	if info.Protocol, err = c.u8("protocol"); err != nil {
		return nil, err
	}
	if info.Name, err = c.cstring("name"); err != nil {
		return nil, err
	}
	if info.Map, err = c.cstring("map"); err != nil {
		return nil, err
	}
	if info.Folder, err = c.cstring("folder"); err != nil {
		return nil, err
	}
	if info.Game, err = c.cstring("game"); err != nil {
		return nil, err
	}
	if info.AppID, err = c.u16("app id"); err != nil {
		return nil, err
	}
	if info.Players, err = c.u8("players"); err != nil {
		return nil, err
	}
	if info.MaxPlayers, err = c.u8("max players"); err != nil {
		return nil, err
	}
	if info.Bots, err = c.u8("bots"); err != nil {
		return nil, err
	}

	if b, err = c.u8("server type"); err != nil {
		return nil, err
	}
	info.ServerType = parseServerType(b)

	if b, err = c.u8("environment"); err != nil {
		return nil, err
	}
	info.Environment = parseEnvironment(b)

	if b, err = c.u8("visibility"); err != nil {
		return nil, err
	}
	info.Visibility = b != 0

	if b, err = c.u8("vac"); err != nil {
		return nil, err
	}
	info.VAC = b != 0

	if info.Version, err = c.cstring("version"); err != nil {
		return nil, err
	}
	if info.EDF, err = c.u8("edf"); err != nil {
		return nil, err
	}

	for _, field := range edfFields {
		if info.EDF&field.flag == 0 {
			continue
		}
		if err := field.decode(c, &info); err != nil {
			return nil, err
		}
	}

	return &info, nil
}

// EncodeInfo serializes info as an A2S_INFO reply. Optional fields are
// written for every set EDF bit, as zero values when the field is nil.
func EncodeInfo(info *ServerInfo) []byte {
	buf := make([]byte, 0, 64+len(info.Name)+len(info.Map)+len(info.Folder)+len(info.Game))
	buf = append(buf, magic[:]...)
	buf = append(buf, S2AInfo, info.Protocol)
	buf = appendCString(buf, info.Name)
	buf = appendCString(buf, info.Map)
	buf = appendCString(buf, info.Folder)
	buf = appendCString(buf, info.Game)
	buf = binary.LittleEndian.AppendUint16(buf, info.AppID)
	buf = append(buf,
		info.Players,
		info.MaxPlayers,
		info.Bots,
		info.ServerType.wire(),
		info.Environment.wire(),
		boolByte(info.Visibility),
		boolByte(info.VAC),
	)
	buf = appendCString(buf, info.Version)
	buf = append(buf, info.EDF)

	for _, field := range edfFields {
		if info.EDF&field.flag != 0 {
			buf = field.encode(buf, info)
		}
	}

	return buf
}

func appendCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
