package action

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultNamespace is used when a manifest does not name one.
const DefaultNamespace = "default"

// Manifest is the on-disk YAML description of an action, typically an
// action.yaml next to the entry script. Limit fields are plain numbers and
// go through the same validating factories as the JSON wire form; absent
// fields take the platform defaults.
type Manifest struct {
	Name       string `yaml:"name"`
	Namespace  string `yaml:"namespace"`
	EntryPoint string `yaml:"entry_point"`
	Limits     struct {
		Memory  *int `yaml:"memory"`
		Timeout *int `yaml:"timeout"`
		Logs    *int `yaml:"logs"`
	} `yaml:"limits"`
	Vars        map[string]string `yaml:"vars"`
	Annotations map[string]string `yaml:"annotations"`
}

// ParseManifest decodes a YAML manifest and builds a validated Definition
// from it. Limit violations surface as ErrInvalidArgument from the limit
// factories, with the manifest field named in the wrapping message.
func ParseManifest(data []byte) (*Definition, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing action manifest: empty document")
		}
		return nil, fmt.Errorf("parsing action manifest: %w", err)
	}
	return m.Definition()
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading action manifest: %w", err)
	}
	def, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Definition builds a validated Definition from the manifest, substituting
// defaults for absent fields.
func (m *Manifest) Definition() (*Definition, error) {
	def := &Definition{
		Name:        m.Name,
		Namespace:   m.Namespace,
		EntryPoint:  m.EntryPoint,
		Limits:      DefaultLimits(),
		Vars:        m.Vars,
		Annotations: m.Annotations,
	}
	if def.Namespace == "" {
		def.Namespace = DefaultNamespace
	}
	if def.EntryPoint == "" {
		def.EntryPoint = DefaultEntryPoint
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	var err error
	if m.Limits.Memory != nil {
		def.Limits.Memory, err = NewMemoryLimit(*m.Limits.Memory)
		if err != nil {
			return nil, fmt.Errorf("manifest limits.memory: %w", err)
		}
	}
	if m.Limits.Timeout != nil {
		def.Limits.Timeout, err = NewTimeLimit(*m.Limits.Timeout)
		if err != nil {
			return nil, fmt.Errorf("manifest limits.timeout: %w", err)
		}
	}
	if m.Limits.Logs != nil {
		def.Limits.Logs, err = NewLogLimit(*m.Limits.Logs)
		if err != nil {
			return nil, fmt.Errorf("manifest limits.logs: %w", err)
		}
	}
	return def, nil
}
