package album

import (
	"errors"
	"fmt"
	"path"

	"github.com/spf13/afero"
)

func newFile(path string, fs afero.Fs) *VFile {
	return &VFile{fs: fs, path: path}
}

func newBytes(name string, bs []byte) *VFile {
	return &VFile{path: name, bytes: bs}
}

// VFile is fetched image data, either held in memory or read lazily from
// an afero filesystem.
type VFile struct {
	fs    afero.Fs
	path  string
	bytes []byte
}

func (v *VFile) Name() string {
	return path.Base(v.path)
}

func (v *VFile) Bytes() ([]byte, error) {
	if len(v.bytes) > 0 {
		return v.bytes, nil
	}

	if v.fs == nil {
		return nil, errors.New("no file to read")
	}

	bs, err := afero.ReadFile(v.fs, v.path)
	if err != nil {
		return nil, fmt.Errorf("vfile read failed: %w", err)
	}

	v.bytes = bs
	return bs, nil
}
