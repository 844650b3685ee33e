package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Marshal encodes a document as indented JSON.
func Marshal(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a document and normalizes nil slices.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	d.Normalize()
	return &d, nil
}

// Write encodes d to w.
func Write(d *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode flow: %w", err)
	}
	return nil
}

// Read decodes a document from r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read flow: %w", err)
	}
	return Unmarshal(data)
}

// ReadFile reads a document from a JSON file.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile writes a document to a JSON file with 0644 permissions.
func WriteFile(d *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(d, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Normalize fills defaults: missing node types become standard, and nil
// transition, node and point slices become empty ones.
func (d *Document) Normalize() {
	if d.Nodes == nil {
		d.Nodes = []Node{}
	}
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.Type == "" {
			n.Type = TypeStandard
		}
		if n.Next == nil {
			n.Next = []Transition{}
		}
	}
	for i := range d.Links {
		if d.Links[i].Points == nil {
			d.Links[i].Points = []Point{}
		}
	}
}
