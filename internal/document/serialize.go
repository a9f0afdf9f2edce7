package document

import (
	"encoding/gob"
	"fmt"
	"io"
)

// snapshot is the gob-encoded form of a Document. The content hash is not
// stored; it is recomputed from the source bytes on decode so a corrupted
// entry can never masquerade as different content.
type snapshot struct {
	Path     string
	Language string
	Source   []byte
	Root     *Node
}

// Encode writes the document in its serialized cache form.
func (d *Document) Encode(w io.Writer) error {
	snap := snapshot{
		Path:     d.path,
		Language: d.language,
		Source:   d.source,
		Root:     d.root,
	}
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encode document %s: %w", d.hash, err)
	}
	return nil
}

// Decode reads a document from its serialized cache form.
func Decode(r io.Reader) (*Document, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &Document{
		hash:     HashBytes(snap.Source),
		path:     snap.Path,
		language: snap.Language,
		source:   snap.Source,
		root:     snap.Root,
	}, nil
}
