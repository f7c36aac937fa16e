package daemon

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"scorepub/internal/fileutil"
)

// ErrRedeployed reports that the deployment checksum changed since startup.
var ErrRedeployed = errors.New("deployment changed; restart required")

var executablePath = os.Executable

// Deployment remembers the checksum seen at startup.
type Deployment struct {
	source  string
	fromExe bool
	initial string
}

// NewDeployment reads the checksum file, or hashes the running executable
// when path is empty.
func NewDeployment(path string) (*Deployment, error) {
	d := &Deployment{source: strings.TrimSpace(path)}
	if d.source == "" {
		exe, err := executablePath()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		d.source = exe
		d.fromExe = true
	}
	sum, err := d.current()
	if err != nil {
		return nil, err
	}
	d.initial = sum
	return d, nil
}

// Source returns the file the checksum is read from.
func (d *Deployment) Source() string {
	if d == nil {
		return ""
	}
	return d.source
}

// Checksum returns the startup checksum.
func (d *Deployment) Checksum() string {
	if d == nil {
		return ""
	}
	return d.initial
}

// Check returns ErrRedeployed when the checksum differs from startup.
func (d *Deployment) Check() error {
	if d == nil {
		return nil
	}
	sum, err := d.current()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRedeployed, err)
	}
	if sum != d.initial {
		return fmt.Errorf("%w: %s checksum %s -> %s", ErrRedeployed, d.source, short(d.initial), short(sum))
	}
	return nil
}

func (d *Deployment) current() (string, error) {
	if !d.fromExe {
		data, err := os.ReadFile(d.source)
		if err != nil {
			return "", fmt.Errorf("read checksum file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	sum, err := fileutil.FileSHA256(d.source)
	if err != nil {
		return "", fmt.Errorf("hash executable: %w", err)
	}
	return sum, nil
}

func short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
