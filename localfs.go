package ftp

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// fs is the local filesystem UploadFile, DownloadFile, MirrorUpload, and
// MirrorDownload operate against. It defaults to the real OS filesystem but
// can be swapped with WithFilesystem for testing against an in-memory
// afero.Fs, matching the way the fclairamb ecosystem decouples its
// filesystem-facing code from package os.
var defaultFs = afero.NewOsFs()

// WithFilesystem overrides the afero.Fs used by UploadFile, DownloadFile,
// MirrorUpload, and MirrorDownload. Tests typically pass
// afero.NewMemMapFs() here to avoid touching disk.
func WithFilesystem(fsys afero.Fs) Option {
	return func(c *Client) error {
		c.fs = fsys
		return nil
	}
}

func (c *Client) filesystem() afero.Fs {
	if c.fs != nil {
		return c.fs
	}
	return defaultFs
}

// MirrorUpload walks localDir and uploads every regular file it finds to
// the corresponding path under remoteDir, creating remote directories as
// needed. Symlinks are not followed — afero.Walk reports them as regular
// files or directories depending on their target, which is a platform
// concern this client doesn't try to second-guess.
func (c *Client) MirrorUpload(localDir, remoteDir string) error {
	fsys := c.filesystem()

	return afero.Walk(fsys, localDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(localDir, p)
		if relErr != nil {
			return relErr
		}
		remotePath := path.Join(remoteDir, filepath.ToSlash(rel))

		if info.IsDir() {
			if rel == "." {
				return nil
			}
			if mkErr := c.MakeDir(remotePath); mkErr != nil {
				// Best-effort: the directory may already exist.
				if _, statErr := c.Size(remotePath); statErr != nil {
					return fmt.Errorf("mkdir %s: %w", remotePath, mkErr)
				}
			}
			return nil
		}

		f, openErr := fsys.Open(p)
		if openErr != nil {
			return openErr
		}
		defer f.Close()

		if err := c.Store(remotePath, f); err != nil {
			return fmt.Errorf("store %s: %w", remotePath, err)
		}
		return nil
	})
}

// MirrorDownload walks remoteDir over the control connection and
// downloads every file it finds into the corresponding path under
// localDir, creating local directories as needed.
func (c *Client) MirrorDownload(remoteDir, localDir string) error {
	fsys := c.filesystem()

	return c.Walk(remoteDir, func(p string, info *Entry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(remoteDir, p)
		if relErr != nil {
			return relErr
		}
		localPath := filepath.Join(localDir, rel)

		if info.Type == "dir" {
			return fsys.MkdirAll(localPath, 0o755)
		}

		if err := fsys.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return err
		}

		f, createErr := fsys.Create(localPath)
		if createErr != nil {
			return createErr
		}
		defer f.Close()

		if err := c.Retrieve(p, f); err != nil {
			return fmt.Errorf("retrieve %s: %w", p, err)
		}
		return nil
	})
}
