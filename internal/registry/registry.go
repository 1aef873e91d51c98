package registry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/shepherd/internal/control"
)

// Descriptor identifies a runnable child recorded in the control directory.
// Name is the unique key; ExecPath is taken on trust until launch time.
type Descriptor struct {
	Name         string
	ExecPath     string
	DiscoveredAt time.Time
}

// Registry reads and writes child descriptors under scripts/ in the control
// directory. Writes are last-write-wins; nothing is ever pruned.
type Registry struct {
	dir control.Dir
}

func New(dir control.Dir) *Registry { return &Registry{dir: dir} }

// Register upserts the descriptor for name. Registration is best-effort:
// callers on the child side swallow the returned error because a failed
// registration must never be fatal to the child itself.
func (r *Registry) Register(name, execPath string) error {
	if name == "" {
		return fmt.Errorf("register: empty name")
	}
	body := fmt.Sprintf("name=%s\npath=%s\n", name, execPath)
	if err := os.WriteFile(r.dir.InfoFile(name), []byte(body), 0o600); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}

// List returns all current descriptors in unspecified order. Unparseable
// files are skipped rather than failing the whole listing.
func (r *Registry) List() ([]Descriptor, error) {
	entries, err := os.ReadDir(r.dir.ScriptsDir())
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	out := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".info") {
			continue
		}
		path := filepath.Join(r.dir.ScriptsDir(), e.Name())
		d, err := readDescriptor(path)
		if err != nil {
			continue
		}
		if fi, err := e.Info(); err == nil {
			d.DiscoveredAt = fi.ModTime()
		}
		out = append(out, d)
	}
	return out, nil
}

// Get returns the descriptor for name, or an error when it is absent.
func (r *Registry) Get(name string) (Descriptor, error) {
	d, err := readDescriptor(r.dir.InfoFile(name))
	if err != nil {
		return Descriptor{}, fmt.Errorf("unknown child: %s", name)
	}
	fi, statErr := os.Stat(r.dir.InfoFile(name))
	if statErr == nil {
		d.DiscoveredAt = fi.ModTime()
	}
	return d, nil
}

func readDescriptor(path string) (Descriptor, error) {
	f, err := os.Open(path) // #nosec G304 -- path is derived from the control dir
	if err != nil {
		return Descriptor{}, err
	}
	defer func() { _ = f.Close() }()

	var d Descriptor
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch k {
		case "name":
			d.Name = v
		case "path":
			d.ExecPath = v
		}
	}
	if err := sc.Err(); err != nil {
		return Descriptor{}, err
	}
	if d.Name == "" {
		return Descriptor{}, fmt.Errorf("descriptor %s: missing name", path)
	}
	return d, nil
}
