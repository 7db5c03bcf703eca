package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File suffixes that give a node its kind in a DirTree. Files without one of
// these suffixes are blobs.
const (
	suffixInt   = ".int"
	suffixFloat = ".float"
	suffixText  = ".txt"
)

// DirTree is a Tree laid out on disk: each block path is a directory path and
// each leaf is a file. Scalars are stored as decimal text in "<name>.int" or
// "<name>.float", strings as UTF-8 in "<name>.txt", blobs as raw bytes in "<name>".
type DirTree struct {
	root string
}

// OpenDir returns a DirTree rooted at dir.
func OpenDir(dir string) (*DirTree, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening tree: %s is not a directory", dir)
	}
	return &DirTree{root: dir}, nil
}

// Root returns the directory the tree is rooted at.
func (d *DirTree) Root() string {
	return d.root
}

// Goto implements Tree.
func (d *DirTree) Goto(path string) (Value, error) {
	base := filepath.Join(append([]string{d.root}, SplitPath(path)...)...)

	for _, suffix := range []string{suffixInt, suffixFloat, suffixText, ""} {
		// A directory at the blob path is an inner block, not a value.
		if suffix == "" && isDir(base) {
			return Value{}, nil
		}
		data, err := os.ReadFile(base + suffix)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Value{}, err
		}
		return parseNode(suffix, data)
	}
	return Value{}, nil
}

func parseNode(suffix string, data []byte) (Value, error) {
	switch suffix {
	case suffixInt:
		v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parsing integer node: %w", err)
		}
		return IntValue(v), nil
	case suffixFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			return Value{}, fmt.Errorf("parsing float node: %w", err)
		}
		return FloatValue(v), nil
	case suffixText:
		return StringValue(strings.TrimRight(string(data), "\n")), nil
	}
	return BlobValue(data), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WriteDir stores every node of m under dir using the DirTree layout.
func WriteDir(dir string, m *MemTree) error {
	return m.Walk(func(path string, v Value) error {
		name := filepath.Join(append([]string{dir}, SplitPath(path)...)...)
		var data []byte
		switch v.Kind() {
		case Integer:
			name += suffixInt
			data = []byte(strconv.FormatInt(v.i, 10) + "\n")
		case Float:
			name += suffixFloat
			data = []byte(strconv.FormatFloat(v.f, 'g', -1, 64) + "\n")
		case String:
			name += suffixText
			data = []byte(v.s + "\n")
		case Blob:
			data = v.b
		default:
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
			return fmt.Errorf("creating block directory: %w", err)
		}
		if err := os.WriteFile(name, data, 0644); err != nil {
			return fmt.Errorf("writing node %q: %w", path, err)
		}
		return nil
	})
}
