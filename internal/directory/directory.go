// Package directory holds the catalogue of specialties and the doctors that
// practise them. A Directory is built once at start-up and is read-only
// afterwards, so it can be shared between goroutines without locking.
package directory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDocument is returned when a directory document fails validation.
var ErrInvalidDocument = errors.New("invalid directory document")

// DoctorEntry describes one practitioner. Entries loaded from the minimal
// shape ("Dr. Lee (Heart Specialist)") only carry Name.
type DoctorEntry struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string   `json:"name" yaml:"name"`
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	Specialty string   `json:"specialty" yaml:"specialty"`
	Symptoms  []string `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	Location  string   `json:"location,omitempty" yaml:"location,omitempty"`
	Contact   string   `json:"contact,omitempty" yaml:"contact,omitempty"`
}

// DisplayName is the string shown to patients and sent to the model.
func (e DoctorEntry) DisplayName() string {
	if e.Title == "" {
		return e.Name
	}
	return e.Name + " (" + e.Title + ")"
}

// TreatsSymptom reports whether symptom is listed for the doctor, ignoring case.
func (e DoctorEntry) TreatsSymptom(symptom string) bool {
	for _, s := range e.Symptoms {
		if strings.EqualFold(s, symptom) {
			return true
		}
	}
	return false
}

// Specialty groups the doctors of one field of practice.
type Specialty struct {
	Name    string
	Doctors []DoctorEntry
}

// Presence tells a lookup caller whether a specialty exists and has doctors.
type Presence int

const (
	Absent Presence = iota
	Empty
	Available
)

func (p Presence) String() string {
	switch p {
	case Available:
		return "available"
	case Empty:
		return "empty"
	default:
		return "absent"
	}
}

// LookupResult is the outcome of Directory.Lookup.
type LookupResult struct {
	Specialty string
	Doctors   []DoctorEntry
	Presence  Presence
}

// Directory is an ordered, immutable mapping from specialty to doctors.
type Directory struct {
	specialties []Specialty
	index       map[string]int
}

// NormalizeSpecialty returns the key form of a specialty name.
func NormalizeSpecialty(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// New builds a Directory from specialties in the given order. Names are
// lower-cased; empty or duplicate names are rejected. The input slices are
// copied so later changes by the caller are not observed.
func New(specialties []Specialty) (*Directory, error) {
	d := &Directory{
		specialties: make([]Specialty, 0, len(specialties)),
		index:       make(map[string]int, len(specialties)),
	}
	for i, s := range specialties {
		key := NormalizeSpecialty(s.Name)
		if key == "" {
			return nil, fmt.Errorf("%w: specialty %d has no name", ErrInvalidDocument, i)
		}
		if _, dup := d.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate specialty %q", ErrInvalidDocument, key)
		}
		doctors := make([]DoctorEntry, len(s.Doctors))
		for j, doc := range s.Doctors {
			if strings.TrimSpace(doc.Name) == "" {
				return nil, fmt.Errorf("%w: doctor %d of %q has no name", ErrInvalidDocument, j, key)
			}
			doc.Specialty = key
			doc.Symptoms = append([]string(nil), doc.Symptoms...)
			doctors[j] = doc
		}
		d.index[key] = len(d.specialties)
		d.specialties = append(d.specialties, Specialty{Name: key, Doctors: doctors})
	}
	return d, nil
}

// Lookup finds the doctors of a specialty. The comparison ignores case and
// surrounding whitespace. A missing specialty is not an error: the result's
// Presence is Absent. The returned slice is a copy.
func (d *Directory) Lookup(specialty string) LookupResult {
	res := LookupResult{Specialty: specialty, Presence: Absent}
	i, ok := d.index[NormalizeSpecialty(specialty)]
	if !ok {
		return res
	}
	s := d.specialties[i]
	if len(s.Doctors) == 0 {
		res.Presence = Empty
		return res
	}
	res.Presence = Available
	res.Doctors = cloneEntries(s.Doctors)
	return res
}

// Has reports whether the specialty is a key of the directory.
func (d *Directory) Has(specialty string) bool {
	_, ok := d.index[NormalizeSpecialty(specialty)]
	return ok
}

// Specialties returns the specialty keys in directory order.
func (d *Directory) Specialties() []string {
	names := make([]string, len(d.specialties))
	for i, s := range d.specialties {
		names[i] = s.Name
	}
	return names
}

// Doctors returns every doctor in directory order: specialties first, then
// the doctors within each specialty.
func (d *Directory) Doctors() []DoctorEntry {
	var all []DoctorEntry
	for _, s := range d.specialties {
		all = append(all, cloneEntries(s.Doctors)...)
	}
	return all
}

// Len is the number of specialties.
func (d *Directory) Len() int { return len(d.specialties) }

func cloneEntries(in []DoctorEntry) []DoctorEntry {
	out := make([]DoctorEntry, len(in))
	for i, e := range in {
		e.Symptoms = append([]string(nil), e.Symptoms...)
		out[i] = e
	}
	return out
}
