package directory

import (
	"bytes"
	"encoding/json"
)

// PromptSchemaVersion versions the document produced by Serialize. Bump it
// whenever the shape changes so prompts and parsers can be updated together.
const PromptSchemaVersion = 1

// Serialize renders the directory for the completion service:
//
//	{"schema_version":1,"doctor_types":{"cardiology":["Dr. Lee (Heart Specialist)", ...], ...}}
//
// Specialties appear in directory order, which encoding/json maps would lose.
func (d *Directory) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"schema_version":`)
	version, err := json.Marshal(PromptSchemaVersion)
	if err != nil {
		return nil, err
	}
	buf.Write(version)
	buf.WriteString(`,"doctor_types":{`)
	for i, s := range d.specialties {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(s.Doctors))
		for j, doc := range s.Doctors {
			names[j] = doc.DisplayName()
		}
		value, err := json.Marshal(names)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}
