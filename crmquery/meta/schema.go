package meta

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/nonibytes/crmquery/crmquery/fields"
)

// Timestamp is epoch milliseconds. It decodes from a JSON number or a numeric string.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*t = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil {
			return err
		}
		n = int64(f)
	}
	*t = Timestamp(n)
	return nil
}

// Option is one allowed value of an enumerated field
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label,omitempty"`
}

// Descriptor describes one field of an entity
type Descriptor struct {
	Name               string   `json:"name"`
	Type               string   `json:"type,omitempty"`
	DataType           string   `json:"dataType,omitempty"`
	DataSpecialization string   `json:"dataSpecialization,omitempty"`
	Label              string   `json:"label,omitempty"`
	MaxLength          int      `json:"maxLength,omitempty"`
	Confidential       bool     `json:"confidential,omitempty"`
	Optional           bool     `json:"optional,omitempty"`
	Required           bool     `json:"required,omitempty"`
	ReadOnly           bool     `json:"readOnly,omitempty"`
	MultiValue         bool     `json:"multiValue,omitempty"`
	InputType          string   `json:"inputType,omitempty"`
	OptionsType        string   `json:"optionsType,omitempty"`
	OptionsURL         string   `json:"optionsUrl,omitempty"`
	Options            []Option `json:"options,omitempty"`
	HideFromSearch     bool     `json:"hideFromSearch,omitempty"`
	SortOrder          int      `json:"sortOrder,omitempty"`
	Hint               string   `json:"hint,omitempty"`
	Description        string   `json:"description,omitempty"`

	AssociatedEntity *Schema `json:"associatedEntity,omitempty"`
}

// Schema is the known metadata of one entity type. It doubles as the
// metadata response body. Cached snapshots are never modified in place.
type Schema struct {
	Entity           string       `json:"entity,omitempty"`
	EntityMetaURL    string       `json:"entityMetaUrl,omitempty"`
	Label            string       `json:"label,omitempty"`
	DateLastModified Timestamp    `json:"dateLastModified,omitempty"`
	DateCached       Timestamp    `json:"dateCached,omitempty"`
	Fields           []Descriptor `json:"fields"`
}

func (s *Schema) index(name string) int {
	if s == nil {
		return -1
	}
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Field returns the descriptor named name
func (s *Schema) Field(name string) (Descriptor, bool) {
	i := s.index(name)
	if i < 0 {
		return Descriptor{}, false
	}
	return s.Fields[i], true
}

// Lookup implements fields.Schema
func (s *Schema) Lookup(name string) (fields.Schema, bool) {
	i := s.index(name)
	if i < 0 {
		return nil, false
	}
	if sub := s.Fields[i].AssociatedEntity; sub != nil {
		return sub, true
	}
	return nil, true
}

// Names returns the known field names in order
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.Fields))
	for i := range s.Fields {
		out[i] = s.Fields[i].Name
	}
	return out
}

// Merge returns the union of s and in. Fields new to s are appended; known
// fields take in's attributes and merge their associated entities.
// Neither s nor in is modified.
func (s *Schema) Merge(in *Schema) *Schema {
	out := s.clone()
	if in == nil {
		return out
	}
	if out == nil {
		out = &Schema{}
	}
	if in.Entity != "" {
		out.Entity = in.Entity
	}
	if in.EntityMetaURL != "" {
		out.EntityMetaURL = in.EntityMetaURL
	}
	if in.Label != "" {
		out.Label = in.Label
	}
	if in.DateLastModified != 0 {
		out.DateLastModified = in.DateLastModified
	}
	for _, d := range in.Fields {
		i := out.index(d.Name)
		if i < 0 {
			d.AssociatedEntity = d.AssociatedEntity.clone()
			out.Fields = append(out.Fields, d)
			continue
		}
		d.AssociatedEntity = out.Fields[i].AssociatedEntity.Merge(d.AssociatedEntity)
		out.Fields[i] = d
	}
	return out
}

func (s *Schema) clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = make([]Descriptor, len(s.Fields))
	for i, d := range s.Fields {
		d.AssociatedEntity = d.AssociatedEntity.clone()
		out.Fields[i] = d
	}
	return &out
}

// Extract returns the descriptors of the requested fields that are known.
// Names are reduced to their root field; the id descriptor always comes first.
func (s *Schema) Extract(names []string) []Descriptor {
	var out []Descriptor
	for _, name := range names {
		d, ok := s.Field(cleanName(name))
		if !ok {
			continue
		}
		if d.Name == "id" {
			out = append([]Descriptor{d}, out...)
			continue
		}
		out = append(out, d)
	}
	return out
}

// cleanName reduces "owner.id", "sectors[3]" or "owner(id)" to the root field
func cleanName(name string) string {
	if i := strings.IndexAny(name, ".[("); i >= 0 {
		return name[:i]
	}
	return name
}

// Residual returns the part of spec that s does not know yet.
// A nil schema knows nothing.
func Residual(s *Schema, spec string) string {
	if s == nil {
		return spec
	}
	return fields.MissingString(spec, s)
}
