// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type document struct {
	Spheres []Sphere `json:"spheres"`
}

// Decode reads a scene from its JSON form.
func Decode(r io.Reader) (*Scene, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("scene: decode: %w", err)
	}
	return New(doc.Spheres...)
}

// EncodeJSON writes the scene in its JSON form.
func (s *Scene) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Spheres: s.spheres}); err != nil {
		return fmt.Errorf("scene: encode: %w", err)
	}
	return nil
}

// Load reads a scene from a JSON file.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes a scene to a JSON file.
func Save(path string, s *Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if err := s.EncodeJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
