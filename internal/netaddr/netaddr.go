// Package netaddr is the small peer-address value type shared by
// store, node, and netclient: a bare (ip, port) pair as it appears on
// the wire in register/get_nodes (§6).
package netaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// Addr is a peer's advertised TCP listen address.
type Addr struct {
	IP   string
	Port int
}

// String renders "ip:port", the form used as the store's peer-set key.
func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// Parse splits "ip:port" back into an Addr.
func Parse(s string) (Addr, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return Addr{}, fmt.Errorf("netaddr: malformed address %q", s)
	}
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return Addr{}, fmt.Errorf("netaddr: malformed port in %q: %w", s, err)
	}
	return Addr{IP: s[:idx], Port: port}, nil
}

// Pair is the [ip, port] wire shape used by get_nodes responses.
func (a Addr) Pair() [2]interface{} {
	return [2]interface{}{a.IP, a.Port}
}
