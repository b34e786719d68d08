package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"wfstui/internal/model"
)

// ErrNotFound is returned when the wipe tool cannot be located.
var ErrNotFound = errors.New("wipefreespace not found")

// FindWipeFreeSpace returns the path to the wipefreespace binary.
// If customPath is non-empty, it tries that path or looks it up in PATH.
func FindWipeFreeSpace(customPath string) (string, error) {
	if customPath != "" && customPath != model.DefaultWfsPath {
		if st, err := os.Stat(customPath); err == nil && !st.IsDir() {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w at %q", ErrNotFound, customPath)
	}
	if p, err := exec.LookPath(model.DefaultWfsPath); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%w in PATH. Please install wipefreespace or pass --wfs-path", ErrNotFound)
}
