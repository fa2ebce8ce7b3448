package directory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is the only directory document version understood by Load.
const SchemaVersion = 1

// Format selects the encoding of a directory document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// rawDoctor is the rich record shape before validation.
type rawDoctor struct {
	ID        string
	Name      string
	Title     string
	Specialty string
	Symptoms  []string
	Location  string
	Contact   string
	minimal   bool
}

type rawSpecialty struct {
	Name    string
	Doctors []rawDoctor
}

// Load reads a directory document from path. The format is chosen from the
// file extension (.yaml, .yml or .json).
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", ErrInvalidDocument, filepath.Ext(path))
	}
	return Parse(data, format)
}

// Parse decodes and validates a directory document.
//
// A document lists specialties in order, each with doctors given either as a
// display string or as a record. Records may also be listed under a top-level
// "doctors" key with their own "specialty"; those are grouped after the
// explicit specialties in first-seen order.
func Parse(data []byte, format Format) (*Directory, error) {
	var (
		version     int
		specialties []rawSpecialty
		flat        []rawDoctor
		err         error
	)
	switch format {
	case FormatYAML:
		version, specialties, flat, err = parseYAML(data)
	case FormatJSON:
		version, specialties, flat, err = parseJSON(data)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidDocument, format)
	}
	if err != nil {
		return nil, err
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, version)
	}
	return build(specialties, flat)
}

func build(specialties []rawSpecialty, flat []rawDoctor) (*Directory, error) {
	out := make([]Specialty, 0, len(specialties))
	pos := make(map[string]int)
	for _, rs := range specialties {
		key := NormalizeSpecialty(rs.Name)
		s := Specialty{Name: key}
		for i, rd := range rs.Doctors {
			entry, err := rd.entry()
			if err != nil {
				return nil, fmt.Errorf("specialty %q doctor %d: %w", key, i, err)
			}
			if rd.Specialty != "" && NormalizeSpecialty(rd.Specialty) != key {
				return nil, fmt.Errorf("%w: doctor %q listed under %q declares specialty %q",
					ErrInvalidDocument, rd.Name, key, rd.Specialty)
			}
			s.Doctors = append(s.Doctors, entry)
		}
		if _, dup := pos[key]; !dup && key != "" {
			pos[key] = len(out)
		}
		out = append(out, s)
	}
	for i, rd := range flat {
		if rd.minimal {
			return nil, fmt.Errorf("%w: top-level doctor %d must be a record", ErrInvalidDocument, i)
		}
		entry, err := rd.entry()
		if err != nil {
			return nil, fmt.Errorf("doctor %d: %w", i, err)
		}
		key := NormalizeSpecialty(rd.Specialty)
		if key == "" {
			return nil, fmt.Errorf("%w: doctor %q has no specialty", ErrInvalidDocument, rd.ID)
		}
		j, ok := pos[key]
		if !ok {
			j = len(out)
			pos[key] = j
			out = append(out, Specialty{Name: key})
		}
		out[j].Doctors = append(out[j].Doctors, entry)
	}
	return New(out)
}

func (rd rawDoctor) entry() (DoctorEntry, error) {
	if rd.minimal {
		if strings.TrimSpace(rd.Name) == "" {
			return DoctorEntry{}, fmt.Errorf("%w: empty doctor name", ErrInvalidDocument)
		}
		return DoctorEntry{Name: rd.Name}, nil
	}
	if strings.TrimSpace(rd.ID) == "" {
		return DoctorEntry{}, fmt.Errorf("%w: doctor record has no id", ErrInvalidDocument)
	}
	if strings.TrimSpace(rd.Name) == "" {
		return DoctorEntry{}, fmt.Errorf("%w: doctor %q has no name", ErrInvalidDocument, rd.ID)
	}
	return DoctorEntry{
		ID:       rd.ID,
		Name:     rd.Name,
		Title:    rd.Title,
		Symptoms: rd.Symptoms,
		Location: rd.Location,
		Contact:  rd.Contact,
	}, nil
}

// YAML

type yamlDocument struct {
	Version     int             `yaml:"version"`
	Specialties []yamlSpecialty `yaml:"specialties"`
	Doctors     []yaml.Node     `yaml:"doctors"`
}

type yamlSpecialty struct {
	Name    string      `yaml:"name"`
	Doctors []yaml.Node `yaml:"doctors"`
}

type yamlDoctor struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Title     string      `yaml:"title"`
	Specialty string      `yaml:"specialty"`
	Symptoms  []yaml.Node `yaml:"symptoms"`
	Location  string      `yaml:"location"`
	Contact   string      `yaml:"contact"`
}

func parseYAML(data []byte) (int, []rawSpecialty, []rawDoctor, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	specialties := make([]rawSpecialty, 0, len(doc.Specialties))
	for _, ys := range doc.Specialties {
		rs := rawSpecialty{Name: ys.Name}
		for i := range ys.Doctors {
			rd, err := yamlDoctorNode(&ys.Doctors[i])
			if err != nil {
				return 0, nil, nil, err
			}
			rs.Doctors = append(rs.Doctors, rd)
		}
		specialties = append(specialties, rs)
	}
	var flat []rawDoctor
	for i := range doc.Doctors {
		rd, err := yamlDoctorNode(&doc.Doctors[i])
		if err != nil {
			return 0, nil, nil, err
		}
		flat = append(flat, rd)
	}
	return doc.Version, specialties, flat, nil
}

func yamlDoctorNode(n *yaml.Node) (rawDoctor, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" {
			return rawDoctor{}, fmt.Errorf("%w: line %d: doctor must be a string or a record", ErrInvalidDocument, n.Line)
		}
		return rawDoctor{Name: n.Value, minimal: true}, nil
	case yaml.MappingNode:
		var yd yamlDoctor
		if err := n.Decode(&yd); err != nil {
			return rawDoctor{}, fmt.Errorf("%w: line %d: %v", ErrInvalidDocument, n.Line, err)
		}
		rd := rawDoctor{
			ID:        yd.ID,
			Name:      yd.Name,
			Title:     yd.Title,
			Specialty: yd.Specialty,
			Location:  yd.Location,
			Contact:   yd.Contact,
		}
		for _, s := range yd.Symptoms {
			if s.Kind != yaml.ScalarNode || s.ShortTag() != "!!str" {
				return rawDoctor{}, fmt.Errorf("%w: line %d: symptoms of %q must be strings", ErrInvalidDocument, s.Line, yd.ID)
			}
			rd.Symptoms = append(rd.Symptoms, s.Value)
		}
		return rd, nil
	default:
		return rawDoctor{}, fmt.Errorf("%w: line %d: doctor must be a string or a record", ErrInvalidDocument, n.Line)
	}
}

// JSON

type jsonDocument struct {
	Version     int               `json:"version"`
	Specialties []jsonSpecialty   `json:"specialties"`
	Doctors     []json.RawMessage `json:"doctors"`
}

type jsonSpecialty struct {
	Name    string            `json:"name"`
	Doctors []json.RawMessage `json:"doctors"`
}

type jsonDoctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Specialty string `json:"specialty"`
	Symptoms  []any  `json:"symptoms"`
	Location  string `json:"location"`
	Contact   string `json:"contact"`
}

func parseJSON(data []byte) (int, []rawSpecialty, []rawDoctor, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	specialties := make([]rawSpecialty, 0, len(doc.Specialties))
	for _, js := range doc.Specialties {
		rs := rawSpecialty{Name: js.Name}
		for _, raw := range js.Doctors {
			rd, err := jsonDoctorValue(raw)
			if err != nil {
				return 0, nil, nil, err
			}
			rs.Doctors = append(rs.Doctors, rd)
		}
		specialties = append(specialties, rs)
	}
	var flat []rawDoctor
	for _, raw := range doc.Doctors {
		rd, err := jsonDoctorValue(raw)
		if err != nil {
			return 0, nil, nil, err
		}
		flat = append(flat, rd)
	}
	return doc.Version, specialties, flat, nil
}

func jsonDoctorValue(raw json.RawMessage) (rawDoctor, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return rawDoctor{}, fmt.Errorf("%w: empty doctor value", ErrInvalidDocument)
	}
	switch trimmed[0] {
	case '"':
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return rawDoctor{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return rawDoctor{Name: name, minimal: true}, nil
	case '{':
		var jd jsonDoctor
		if err := json.Unmarshal(trimmed, &jd); err != nil {
			return rawDoctor{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		rd := rawDoctor{
			ID:        jd.ID,
			Name:      jd.Name,
			Title:     jd.Title,
			Specialty: jd.Specialty,
			Location:  jd.Location,
			Contact:   jd.Contact,
		}
		for _, s := range jd.Symptoms {
			str, ok := s.(string)
			if !ok {
				return rawDoctor{}, fmt.Errorf("%w: symptoms of %q must be strings", ErrInvalidDocument, jd.ID)
			}
			rd.Symptoms = append(rd.Symptoms, str)
		}
		return rd, nil
	default:
		return rawDoctor{}, fmt.Errorf("%w: doctor must be a string or a record", ErrInvalidDocument)
	}
}
