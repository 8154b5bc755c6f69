package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxNameLength caps action and namespace names, matching the cap the
// platform applies to other user-supplied identifiers.
const maxNameLength = 128

// DefaultEntryPoint is the script file an action runs when the definition
// does not name one.
const DefaultEntryPoint = "_worker.js"

// Limits bundles the per-invocation resource limits of an action.
// The zero value is not valid; use DefaultLimits or decode from JSON.
// On the wire it is an object of bare numbers, e.g.
// {"memory":256,"timeout":60000,"logs":10}; absent fields decode to their
// platform defaults.
type Limits struct {
	Memory  MemoryLimit `json:"memory"`
	Timeout TimeLimit   `json:"timeout"`
	Logs    LogLimit    `json:"logs"`
}

// DefaultLimits returns the platform default for every limit.
func DefaultLimits() Limits {
	return Limits{
		Memory:  DefaultMemoryLimit(),
		Timeout: DefaultTimeLimit(),
		Logs:    DefaultLogLimit(),
	}
}

// UnmarshalJSON decodes a limits object, substituting the platform default
// for every absent field. Present fields go through the limit decoders and
// fail with ErrMalformedValue when invalid.
func (l *Limits) UnmarshalJSON(data []byte) error {
	var raw struct {
		Memory  *MemoryLimit `json:"memory"`
		Timeout *TimeLimit   `json:"timeout"`
		Logs    *LogLimit    `json:"logs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := DefaultLimits()
	if raw.Memory != nil {
		out.Memory = *raw.Memory
	}
	if raw.Timeout != nil {
		out.Timeout = *raw.Timeout
	}
	if raw.Logs != nil {
		out.Logs = *raw.Logs
	}
	*l = out
	return nil
}

// Definition describes a deployable action: its identity, entry point,
// resource limits, and the plain-text variables and annotations exposed to
// it. Limits are valid by construction; Validate covers the identity
// fields.
type Definition struct {
	Name        string            `json:"name"`
	Namespace   string            `json:"namespace"`
	EntryPoint  string            `json:"entryPoint,omitempty"`
	Limits      Limits            `json:"limits"`
	Vars        map[string]string `json:"vars,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// ValidateName rejects empty, oversized, or path-unsafe action names.
// Names end up in file paths and store keys, so path traversal characters,
// separators, and null bytes are not allowed.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: action name must not be empty", ErrInvalidArgument)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: action name too long", ErrInvalidArgument)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: action name contains path traversal", ErrInvalidArgument)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: action name contains path separator", ErrInvalidArgument)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: action name contains null byte", ErrInvalidArgument)
	}
	return nil
}

// ValidateNamespace applies the same rules as ValidateName to a namespace.
func ValidateNamespace(ns string) error {
	if ns == "" {
		return fmt.Errorf("%w: namespace must not be empty", ErrInvalidArgument)
	}
	if len(ns) > maxNameLength {
		return fmt.Errorf("%w: namespace too long", ErrInvalidArgument)
	}
	if strings.Contains(ns, "..") {
		return fmt.Errorf("%w: namespace contains path traversal", ErrInvalidArgument)
	}
	if strings.ContainsAny(ns, "/\\") {
		return fmt.Errorf("%w: namespace contains path separator", ErrInvalidArgument)
	}
	if strings.ContainsRune(ns, 0) {
		return fmt.Errorf("%w: namespace contains null byte", ErrInvalidArgument)
	}
	return nil
}

// Validate checks the identity fields of the definition. The limit fields
// need no check here: any live limit value is in range.
func (d *Definition) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	return ValidateNamespace(d.Namespace)
}

// UnmarshalJSON decodes a definition document. An absent limits field
// decodes to the platform defaults, and an absent entry point to
// DefaultEntryPoint.
func (d *Definition) UnmarshalJSON(data []byte) error {
	type plain Definition
	raw := plain{Limits: DefaultLimits()}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.EntryPoint == "" {
		raw.EntryPoint = DefaultEntryPoint
	}
	*d = Definition(raw)
	return nil
}

// ParseDefinition decodes and validates a JSON definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing action definition: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
