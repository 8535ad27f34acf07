// Package targets loads the list of game servers to poll from a TOML file.
package targets

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Target is a game server query endpoint.
type Target struct {
	Address string `toml:"address"`
	Name    string `toml:"name"`
}

// file is the on-disk layout:
//
//	[[server]]
//	address = "203.0.113.10:27015"
//	name    = "eu-1"
type file struct {
	Servers []Target `toml:"server"`
}

// Load reads and validates the target list at path.
func Load(path string) ([]Target, error) {
	var f file
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode %s: unknown keys %v", path, undecoded)
	}

	return Validate(f.Servers)
}

// Validate normalizes addresses, fills default names and rejects duplicates.
func Validate(list []Target) ([]Target, error) {
	seen := make(map[string]struct{}, len(list))
	out := make([]Target, 0, len(list))

	for i, t := range list {
		address, err := normalize(t.Address)
		if err != nil {
			return nil, fmt.Errorf("server #%d: %w", i+1, err)
		}

		if _, dup := seen[address]; dup {
			return nil, fmt.Errorf("server #%d: duplicate address %s", i+1, address)
		}
		seen[address] = struct{}{}

		t.Address = address
		if t.Name = strings.TrimSpace(t.Name); t.Name == "" {
			t.Name = address
		}

		out = append(out, t)
	}

	return out, nil
}

func normalize(address string) (string, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(address))
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	if host == "" {
		return "", fmt.Errorf("invalid address %q: missing host", address)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid address %q: bad port", address)
	}

	return net.JoinHostPort(strings.ToLower(host), strconv.Itoa(port)), nil
}
