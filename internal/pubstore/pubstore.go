// Package pubstore is a thin JSON marshal/unmarshal of §6's "Public
// store file" shape: the block list and known peer set a node would
// persist to disk between restarts. It is deliberately NOT wired into
// store.Store's hot path — store.Store is an in-memory structure for
// the running process, and disk persistence is an external
// collaborator's concern (see SPEC_FULL.md's persistence-shapes
// section). This package only gives that collaborator, and tests, a
// concrete encode/decode target.
package pubstore

import (
	"encoding/json"

	"github.com/quantcoin/quantcoind/internal/block"
	"github.com/quantcoin/quantcoind/internal/netaddr"
	"github.com/quantcoin/quantcoind/internal/nodeerrors"
)

// File is the public store file's top-level shape: every known block
// and every known peer address.
type File struct {
	Blocks []*block.Block `json:"blocks"`
	Peers  []netaddr.Addr `json:"peers"`
}

type wireFile struct {
	Blocks []*block.Wire `json:"blocks"`
	Peers  []string      `json:"peers"`
}

// Marshal encodes f into the public store file's JSON wire shape,
// reusing block.Wire's base64 encoding for each block.
func Marshal(f File) ([]byte, error) {
	wire := wireFile{
		Blocks: make([]*block.Wire, len(f.Blocks)),
		Peers:  make([]string, len(f.Peers)),
	}
	for i, b := range f.Blocks {
		w, err := b.ToWire()
		if err != nil {
			return nil, err
		}
		wire.Blocks[i] = w
	}
	for i, p := range f.Peers {
		wire.Peers[i] = p.String()
	}

	out, err := json.Marshal(wire)
	if err != nil {
		return nil, nodeerrors.IOError("failed to marshal public store file", err)
	}
	return out, nil
}

// Unmarshal reverses Marshal.
func Unmarshal(data []byte) (File, error) {
	var wire wireFile
	if err := json.Unmarshal(data, &wire); err != nil {
		return File{}, nodeerrors.IOError("failed to unmarshal public store file", err)
	}

	f := File{
		Blocks: make([]*block.Block, len(wire.Blocks)),
		Peers:  make([]netaddr.Addr, len(wire.Peers)),
	}
	for i, w := range wire.Blocks {
		b, err := w.Block()
		if err != nil {
			return File{}, err
		}
		f.Blocks[i] = b
	}
	for i, p := range wire.Peers {
		addr, err := netaddr.Parse(p)
		if err != nil {
			return File{}, err
		}
		f.Peers[i] = addr
	}
	return f, nil
}
