// Package query converts structured requests from the upstream
// natural-language layer into validated models.Query values.
package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Request is the structured search request produced upstream.
type Request struct {
	Query          string   `json:"query,omitempty" yaml:"query,omitempty"`
	Pattern        string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Path           string   `json:"path,omitempty" yaml:"path,omitempty"`
	FileType       string   `json:"file_type,omitempty" yaml:"file_type,omitempty"`
	Extensions     []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	MinSize        Size     `json:"min_size,omitempty" yaml:"min_size,omitempty"`
	MaxSize        Size     `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	ModifiedAfter  string   `json:"modified_after,omitempty" yaml:"modified_after,omitempty"`
	ModifiedBefore string   `json:"modified_before,omitempty" yaml:"modified_before,omitempty"`
	Limit          int      `json:"limit,omitempty" yaml:"limit,omitempty"`
	MaxDepth       *int     `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	IncludeFolders bool     `json:"include_folders,omitempty" yaml:"include_folders,omitempty"`
	IncludeSystem  *bool    `json:"include_system,omitempty" yaml:"include_system,omitempty"`
}

// Size is an optional byte count that decodes from a number or a
// human-readable string such as "10MB" or "1.5 GiB".
type Size struct {
	Bytes int64
	Set   bool
}

// Bytes returns a set Size.
func Bytes(n int64) Size {
	return Size{Bytes: n, Set: true}
}

// ParseSize parses a byte count. Bare integers are bytes.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Size{}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Bytes(n), nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return Size{}, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return Bytes(int64(n)), nil
}

// Ptr returns the size as an optional pointer.
func (s Size) Ptr() *int64 {
	if !s.Set {
		return nil
	}
	v := s.Bytes
	return &v
}

// String renders the size for display.
func (s Size) String() string {
	if !s.Set {
		return ""
	}
	if s.Bytes < 0 {
		return strconv.FormatInt(s.Bytes, 10)
	}
	return humanize.IBytes(uint64(s.Bytes))
}

// IsZero lets encoders omit unset sizes.
func (s Size) IsZero() bool {
	return !s.Set
}

// MarshalJSON implements json.Marshaler.
func (s Size) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(s.Bytes, 10)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Size) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = Size{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := ParseSize(str)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid size %s: %w", raw, err)
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("invalid size %s: %w", raw, err)
		}
		v = int64(f)
	}
	*s = Bytes(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*s = Size{}
		return nil
	}
	v, err := ParseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (interface{}, error) {
	if !s.Set {
		return nil, nil
	}
	return s.Bytes, nil
}
