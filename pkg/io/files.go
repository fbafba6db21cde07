package io

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	xe "github.com/fairtrace/fairtrace/pkg/errors"
)

// CreateAll creates (or truncates) the file, making its missing parent directories.
//
// fmod is the mode of the file, and dmod is for directories newly created.
// Directories which exist already are left as they are.
func CreateAll(name string, fmod os.FileMode, dmod os.FileMode) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), dmod); err != nil {
		return nil, xe.Wrap(err)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, fmod)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return f, nil
}

// DirCopy copies regular files under src into dst, keeping the tree and file modes.
//
// Files existing in dst are overwritten. Symlinks and other special files are skipped.
func DirCopy(src string, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return xe.Wrap(err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return xe.Wrap(err)
		}
		to := filepath.Join(dst, rel)

		if d.IsDir() {
			return xe.Wrap(os.MkdirAll(to, os.FileMode(0o755)))
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return xe.Wrap(err)
		}
		return copyFile(path, to, info.Mode().Perm())
	})
}

func copyFile(src string, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return xe.Wrap(err)
	}
	defer in.Close()

	out, err := CreateAll(dst, mode, os.FileMode(0o755))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return xe.Wrap(err)
	}
	return xe.Wrap(out.Close())
}
