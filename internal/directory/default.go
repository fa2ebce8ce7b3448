package directory

import (
	_ "embed"
	"fmt"
)

//go:embed data/doctors.yaml
var bundledDoctors []byte

// Default returns the directory bundled with the binary. Callers should build
// it once and pass it to every component that needs doctors.
func Default() (*Directory, error) {
	d, err := Parse(bundledDoctors, FormatYAML)
	if err != nil {
		return nil, fmt.Errorf("bundled directory: %w", err)
	}
	return d, nil
}
