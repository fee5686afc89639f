package packager

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/klauspost/compress/zip"
)

// modTime is stamped on every archive entry, so equal trees give equal bytes.
var modTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Tree is a set of files addressed by clean relative paths.
type Tree struct {
	files map[string]domain.File
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{files: make(map[string]domain.File)}
}

// Add inserts f. A path already present is a collision, never an overwrite.
func (t *Tree) Add(f domain.File) error {
	clean, err := cleanPath(f.Path)
	if err != nil {
		return &domain.PackagingError{Path: f.Path, Err: err}
	}
	if existing, ok := t.files[clean]; ok {
		return &domain.PackagingError{
			Path:   clean,
			Reason: fmt.Sprintf("produced by both %s and %s", owner(existing), owner(f)),
		}
	}
	f.Path = clean
	t.files[clean] = f
	return nil
}

// Get returns the file at path.
func (t *Tree) Get(path string) (domain.File, bool) {
	f, ok := t.files[path]
	return f, ok
}

// Len returns the number of files.
func (t *Tree) Len() int { return len(t.files) }

// Files returns every file sorted by path.
func (t *Tree) Files() []domain.File {
	out := make([]domain.File, 0, len(t.files))
	for _, f := range t.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Paths returns every path, sorted.
func (t *Tree) Paths() []string {
	files := t.Files()
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("path must be relative")
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path escapes the scaffold root")
	}
	return clean, nil
}

func owner(f domain.File) string {
	if f.NodeID != "" {
		return fmt.Sprintf("node %q", f.NodeID)
	}
	return fmt.Sprintf("generator %q", f.Generator)
}

// Archive deflates the tree into a zip archive.
func Archive(t *Tree) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range t.Files() {
		hdr := &zip.FileHeader{
			Name:     f.Path,
			Method:   zip.Deflate,
			Modified: modTime,
		}
		hdr.SetMode(0o644)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, &domain.PackagingError{Path: f.Path, Reason: "failed to add archive entry", Err: err}
		}
		if _, err := w.Write(f.Content); err != nil {
			return nil, &domain.PackagingError{Path: f.Path, Reason: "failed to write archive entry", Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, &domain.PackagingError{Reason: "failed to finish archive", Err: err}
	}
	return buf.Bytes(), nil
}

// Package is a packed scaffold.
type Package struct {
	Tree       *Tree
	Bytes      []byte
	Descriptor domain.ArchiveDescriptor
}

// Build collects files into a tree and archives it.
// The first collision aborts with a *domain.PackagingError.
func Build(files []domain.File) (*Package, error) {
	tree := NewTree()
	for _, f := range files {
		if err := tree.Add(f); err != nil {
			return nil, err
		}
	}
	data, err := Archive(tree)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &Package{
		Tree:  tree,
		Bytes: data,
		Descriptor: domain.ArchiveDescriptor{
			ByteSize: int64(len(data)),
			SHA256:   hex.EncodeToString(sum[:]),
			MIME:     domain.ArchiveMIME,
		},
	}, nil
}

// Unpack reads an archive produced by Archive back into a tree.
func Unpack(data []byte) (*Tree, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &domain.PackagingError{Reason: "failed to open archive", Err: err}
	}
	tree := NewTree()
	for _, zf := range zr.File {
		content, err := readEntry(zf)
		if err != nil {
			return nil, &domain.PackagingError{Path: zf.Name, Reason: "failed to read archive entry", Err: err}
		}
		if err := tree.Add(domain.File{Path: zf.Name, Content: content}); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WriteDir materializes the tree under dir.
func WriteDir(t *Tree, dir string) error {
	for _, f := range t.Files() {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return &domain.PackagingError{Path: f.Path, Err: err}
		}
		if err := os.WriteFile(target, f.Content, 0o644); err != nil {
			return &domain.PackagingError{Path: f.Path, Err: err}
		}
	}
	return nil
}
