package checkpoint

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/afero"
)

//go:embed schema.json
var Schema string

type RecoveryFile struct {
	file    afero.File
	fwriter *bufio.Writer
	path    string
}

func NewRecoveryFile(fs afero.Fs, path string) (*RecoveryFile, error) {
	if err := fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("create dst dir %v: %w", filepath.Dir(path), err)
	}
	tmpf, err := afero.TempFile(fs, filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%w: create tmp file", err)
	}
	return &RecoveryFile{
		file:    tmpf,
		fwriter: bufio.NewWriter(tmpf),
		path:    path,
	}, nil
}

func (rf *RecoveryFile) Copy(fs afero.Fs, src io.Reader) error {
	if _, err := io.Copy(rf.fwriter, src); err != nil {
		rf.abort(fs)
		return fmt.Errorf("copy to tmp file: %w", err)
	}
	return rf.Save(fs)
}

// Save flushes the temporary file and moves it into place.
func (rf *RecoveryFile) Save(fs afero.Fs) error {
	defer rf.file.Close()
	if err := rf.fwriter.Flush(); err != nil {
		rf.abort(fs)
		return fmt.Errorf("flush tmp file: %w", err)
	}
	if err := rf.file.Sync(); err != nil {
		rf.abort(fs)
		return fmt.Errorf("%w: sync tmp file", err)
	}
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("%w: close tmp file", err)
	}
	if err := fs.Rename(rf.file.Name(), rf.path); err != nil {
		return fmt.Errorf("%w: rename tmp file %v to %v", err, rf.file.Name(), rf.path)
	}
	return nil
}

func (rf *RecoveryFile) abort(fs afero.Fs) {
	rf.file.Close()
	fs.Remove(rf.file.Name())
}

func ValidateSchema(data []byte) error {
	sch, err := jsonschema.CompileString(schemaFile, Schema)
	if err != nil {
		return fmt.Errorf("compile snapshot json schema: %w", err)
	}
	var v any
	if err = json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	if err = sch.Validate(v); err != nil {
		return fmt.Errorf("validate snapshot data: %w", err)
	}
	return nil
}

func CopyFile(fs afero.Fs, src, dst string) error {
	f, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %v: %w", src, err)
	}
	defer f.Close()
	rf, err := NewRecoveryFile(fs, dst)
	if err != nil {
		return err
	}
	return rf.Copy(fs, f)
}
