package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

// TableKey is the artifact key of a named table: <name>.<ext>.
func TableKey(name string, format frame.Format) string {
	return name + format.Ext()
}

// SaveTable encodes f and stores it atomically under TableKey(name, format).
func SaveTable(ctx context.Context, store Store, name string, format frame.Format, f *frame.Frame) error {
	key := TableKey(name, format)
	if err := store.Put(ctx, key, func(w io.Writer) error { return format.Encode(w, f) }); err != nil {
		return fmt.Errorf("write %s: %w", store.Location(key), err)
	}
	return nil
}

// LoadTable reads a previously saved table back.
func LoadTable(ctx context.Context, store Store, name string, format frame.Format) (*frame.Frame, error) {
	key := TableKey(name, format)
	b, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	f, err := format.Decode(ctx, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", store.Location(key), err)
	}
	return f, nil
}
