package imaging

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeBatch reads a YAML or JSON export of patients and studies.
func DecodeBatch(r io.Reader) (Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if err == io.EOF {
			return Batch{}, nil
		}
		return Batch{}, fmt.Errorf("decode imaging batch: %w", err)
	}
	return b, nil
}
