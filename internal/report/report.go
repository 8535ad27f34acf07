// Package report renders query results for the terminal.
package report

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/leighmacdonald/steamid/v2/steamid"
	"github.com/woozymasta/srcquery/internal/a2s"
)

// Printer writes human readable query results.
type Printer struct {
	w     io.Writer
	key   *color.Color
	value *color.Color
	dim   *color.Color
}

// New returns a Printer writing to w. Colors are used only when colored is true.
func New(w io.Writer, colored bool) *Printer {
	p := &Printer{
		w:     w,
		key:   color.New(color.FgCyan),
		value: color.New(color.FgWhite, color.Bold),
		dim:   color.New(color.FgHiBlack),
	}

	for _, c := range []*color.Color{p.key, p.value, p.dim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// Info prints every field of an info reply, one per line.
// Optional fields absent from the reply are printed as "-".
func (p *Printer) Info(info *a2s.ServerInfo) error {
	rows := [][2]string{
		{"name", info.Name},
		{"map", info.Map},
		{"folder", info.Folder},
		{"game", info.Game},
		{"version", info.Version},
		{"app id", strconv.FormatUint(uint64(info.AppID), 10)},
		{"protocol", strconv.FormatUint(uint64(info.Protocol), 10)},
		{"players", fmt.Sprintf("%d/%d (%d bots)", info.Players, info.MaxPlayers, info.Bots)},
		{"server type", info.ServerType.String()},
		{"environment", info.Environment.String()},
		{"visibility", visibility(info.Visibility)},
		{"vac", strconv.FormatBool(info.VAC)},
		{"edf", fmt.Sprintf("0x%02x", info.EDF)},
		{"game port", optional(info.GamePort, func(v uint16) string { return strconv.FormatUint(uint64(v), 10) })},
		{"steam id", optional(info.SteamID, func(v steamid.SID64) string { return strconv.FormatUint(uint64(v), 10) })},
		{"sourcetv", optional(info.SourceTV, func(v a2s.SourceTV) string { return fmt.Sprintf("%s (port %d)", v.Name, v.Port) })},
		{"keywords", optional(info.Keywords, func(string) string { return strings.Join(info.Tags(), ", ") })},
		{"game id", optional(info.GameID, func(v uint64) string { return strconv.FormatUint(v, 10) })},
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(p.w, "%s %s\n", p.key.Sprintf("%-12s", row[0]+":"), p.value.Sprint(row[1])); err != nil {
			return err
		}
	}

	return nil
}

// Raw prints an undecoded reply as a hex dump.
func (p *Printer) Raw(kind a2s.Kind, payload []byte) error {
	if _, err := fmt.Fprintf(p.w, "%s %s\n", p.key.Sprint(kind.String()+":"), p.dim.Sprintf("%d bytes", len(payload))); err != nil {
		return err
	}

	_, err := io.WriteString(p.w, hex.Dump(payload))
	return err
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func visibility(private bool) string {
	if private {
		return "private"
	}
	return "public"
}

// optional formats a pointer field, or "-" when it is nil.
func optional[T any](p *T, format func(T) string) string {
	if p == nil {
		return "-"
	}
	return format(*p)
}
