// Package protocol implements the wire command envelope of §6: a
// tagged union of the five commands a node understands, decoded from
// a single JSON object keyed by "cmd". Per SPEC_FULL.md's REDESIGN
// FLAG this replaces a name-indexed dispatch table with a Command
// interface and an exhaustive type switch at the call site.
package protocol

import (
	"encoding/json"

	"github.com/quantcoin/quantcoind/internal/nodeerrors"
)

// Command is implemented by every concrete command type this package
// decodes. It carries no methods of its own: callers type-switch on
// the concrete type, which is Go's nearest equivalent of an
// exhaustive match over a closed sum type.
type Command interface {
	isCommand()
}

// RegisterCmd announces a peer's listen address.
type RegisterCmd struct {
	Address string
	Port    int
}

func (RegisterCmd) isCommand() {}

// GetNodesCmd requests the responder's known peer set.
type GetNodesCmd struct{}

func (GetNodesCmd) isCommand() {}

// GetBlocksCmd requests stored blocks, optionally restricted to a
// [start, end) range.
type GetBlocksCmd struct {
	Range *[2]int
}

func (GetBlocksCmd) isCommand() {}

// NewBlockCmd announces a newly mined or received block, still in raw
// wire form; the caller decodes it with block.FromJSON once chain
// context (for validation) is available.
type NewBlockCmd struct {
	Block json.RawMessage
}

func (NewBlockCmd) isCommand() {}

// SendCmd carries a transaction, still in raw wire form (object or
// JSON-encoded string, per §6's quirk — transaction.FromJSON resolves
// both forms).
type SendCmd struct {
	Transaction json.RawMessage
}

func (SendCmd) isCommand() {}

// envelope is the outer {"cmd": ..., ...} shape every command shares.
type envelope struct {
	Cmd         string           `json:"cmd"`
	Address     string           `json:"address"`
	Port        int              `json:"port"`
	Range       *[2]int          `json:"range"`
	Block       *json.RawMessage `json:"block"`
	Transaction *json.RawMessage `json:"transaction"`
}

// ErrUnknownCommand is returned by Decode for any "cmd" value this
// package does not recognize.
var ErrUnknownCommand = nodeerrors.ProtocolError("unknown command", nil)

// Decode parses raw as a command envelope and returns the concrete
// Command it names. A malformed envelope or unrecognized "cmd"
// yields a ProtocolError; Decode never returns a Command for
// untrusted input it cannot fully make sense of, so the caller's
// later exhaustive switch only ever sees well-formed variants.
func Decode(raw []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nodeerrors.ProtocolError("malformed command envelope", err)
	}

	switch env.Cmd {
	case "register":
		return RegisterCmd{Address: env.Address, Port: env.Port}, nil
	case "get_nodes":
		return GetNodesCmd{}, nil
	case "get_blocks":
		return GetBlocksCmd{Range: env.Range}, nil
	case "new_block":
		if env.Block == nil {
			return nil, nodeerrors.ProtocolError("new_block missing block field", nil)
		}
		return NewBlockCmd{Block: *env.Block}, nil
	case "send":
		if env.Transaction == nil {
			return nil, nodeerrors.ProtocolError("send missing transaction field", nil)
		}
		return SendCmd{Transaction: *env.Transaction}, nil
	default:
		return nil, ErrUnknownCommand
	}
}

// Encode marshals a Command back to its wire envelope, for use by
// netclient when composing an outbound request.
func Encode(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case RegisterCmd:
		return json.Marshal(struct {
			Cmd     string `json:"cmd"`
			Address string `json:"address"`
			Port    int    `json:"port"`
		}{"register", c.Address, c.Port})
	case GetNodesCmd:
		return json.Marshal(struct {
			Cmd string `json:"cmd"`
		}{"get_nodes"})
	case GetBlocksCmd:
		return json.Marshal(struct {
			Cmd   string  `json:"cmd"`
			Range *[2]int `json:"range,omitempty"`
		}{"get_blocks", c.Range})
	case NewBlockCmd:
		return json.Marshal(struct {
			Cmd   string          `json:"cmd"`
			Block json.RawMessage `json:"block"`
		}{"new_block", c.Block})
	case SendCmd:
		return json.Marshal(struct {
			Cmd         string          `json:"cmd"`
			Transaction json.RawMessage `json:"transaction"`
		}{"send", c.Transaction})
	default:
		panic("unhandled command type")
	}
}
