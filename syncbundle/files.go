package syncbundle

import (
	"fmt"
	"os"
	"time"
)

// FileName returns the conventional file name for a bundle exported at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("site-settings-%s.json", t.UTC().Format("20060102-150405"))
}

// WriteFile marshals a bundle and writes it to path.
func WriteFile(path string, b Bundle) error {
	data, err := Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ReadFile reads and parses a bundle from path.
func ReadFile(path string) (Bundle, error) {
	data, err := os.ReadFile(path) //nolint:gosec // reading a user-specified file is intended
	if err != nil {
		return Bundle{}, err
	}
	return Parse(data)
}
