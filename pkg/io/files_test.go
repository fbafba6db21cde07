package io_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	fio "github.com/fairtrace/fairtrace/pkg/io"
	"github.com/google/go-cmp/cmp"
)

func TestCreateAll(t *testing.T) {
	t.Run("when parent directories are missing, it creates them with the directory mode", func(t *testing.T) {
		defaultUmask := syscall.Umask(0)
		defer syscall.Umask(defaultUmask)

		root := t.TempDir()
		f, err := fio.CreateAll(filepath.Join(root, "reports", "2026", "r-1.xlsx"), 0o600, 0o750)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		for _, dir := range []string{"reports", filepath.Join("reports", "2026")} {
			stat, err := os.Stat(filepath.Join(root, dir))
			if err != nil || !stat.IsDir() {
				t.Fatalf("%s is not a directory: %v", dir, err)
			}
			if stat.Mode().Perm() != 0o750 {
				t.Errorf("mode of %s: %s", dir, stat.Mode())
			}
		}
		stat, err := os.Stat(filepath.Join(root, "reports", "2026", "r-1.xlsx"))
		if err != nil || stat.IsDir() {
			t.Fatalf("file is not created: %v", err)
		}
		if stat.Mode().Perm() != 0o600 {
			t.Errorf("mode of file: %s", stat.Mode())
		}
	})

	t.Run("when the file exists, it is truncated", func(t *testing.T) {
		root := t.TempDir()
		name := filepath.Join(root, "out.xlsx")
		if err := os.WriteFile(name, []byte("old content"), 0o644); err != nil {
			t.Fatal(err)
		}

		f, err := fio.CreateAll(name, 0o644, 0o755)
		if err != nil {
			t.Fatal(err)
		}
		f.Close()

		content, err := os.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		if len(content) != 0 {
			t.Errorf("content remains: %q", content)
		}
	})
}

func TestDirCopy(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		filepath.Join("1", "0001_init.sql"):   "create table node();",
		filepath.Join("2", "0001_claims.sql"): "create table claim();",
		"README":                              "schema repository",
	}
	for name, content := range files {
		path := filepath.Join(src, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			t.Fatal(err)
		}
	}

	dst := filepath.Join(t.TempDir(), "copied")
	if err := fio.DirCopy(src, dst); err != nil {
		t.Fatal(err)
	}

	got := map[string]string{}
	err := filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got[rel] = string(content)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(got, files) {
		t.Errorf("copied files: %s", cmp.Diff(files, got))
	}
}
