// Package container provides typed, path-based access to the block tree of a
// measurement file. Parsing the file into a tree is left to an implementation
// of Tree; this package ships an in-memory tree and a directory-backed tree.
package container

import (
	"fmt"

	"itastack/internal/models"
)

// Kind enumerates the value types a node can hold.
type Kind int

const (
	Missing Kind = iota
	Integer
	Float
	String
	Blob
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Blob:
		return "blob"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is the content of one node. The zero Value is Missing.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

func IntValue(v int64) Value     { return Value{kind: Integer, i: v} }
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }
func StringValue(v string) Value { return Value{kind: String, s: v} }
func BlobValue(v []byte) Value   { return Value{kind: Blob, b: v} }

// Kind returns the value type.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the node was absent.
func (v Value) IsMissing() bool { return v.kind == Missing }

// Tree resolves slash separated paths to values. Goto returns a Missing value,
// not an error, when the path does not exist; the error is reserved for I/O
// failures of the underlying storage.
type Tree interface {
	Goto(path string) (Value, error)
}

func lookup(t Tree, path string, want Kind) (Value, error) {
	v, err := t.Goto(path)
	if err != nil {
		return Value{}, &models.FormatError{Op: "read", Path: path, Err: err}
	}
	if v.kind == Missing {
		return Value{}, &models.FormatError{Op: "read", Path: path, Err: fmt.Errorf("node is missing")}
	}
	// Integers widen to floats, the instrument stores some float fields as longs.
	if want == Float && v.kind == Integer {
		return FloatValue(float64(v.i)), nil
	}
	if v.kind != want {
		return Value{}, &models.FormatError{
			Op:   "read",
			Path: path,
			Err:  fmt.Errorf("expected %s, found %s", want, v.kind),
		}
	}
	return v, nil
}

// Int reads an Integer node.
func Int(t Tree, path string) (int64, error) {
	v, err := lookup(t, path, Integer)
	if err != nil {
		return 0, err
	}
	return v.i, nil
}

// Float64 reads a Float node. Integer nodes are converted.
func Float64(t Tree, path string) (float64, error) {
	v, err := lookup(t, path, Float)
	if err != nil {
		return 0, err
	}
	return v.f, nil
}

// Text reads a String node.
func Text(t Tree, path string) (string, error) {
	v, err := lookup(t, path, String)
	if err != nil {
		return "", err
	}
	return v.s, nil
}

// Bytes reads a Blob node.
func Bytes(t Tree, path string) ([]byte, error) {
	v, err := lookup(t, path, Blob)
	if err != nil {
		return nil, err
	}
	return v.b, nil
}

// Exists reports whether path resolves to a non-missing node.
func Exists(t Tree, path string) (bool, error) {
	v, err := t.Goto(path)
	if err != nil {
		return false, err
	}
	return !v.IsMissing(), nil
}
