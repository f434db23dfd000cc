package homedir

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/m-217/useradmin/logger"
)

// Manager creates, checks, and removes home directories under a shared
// base path, populating new directories from a skeleton template tree.
type Manager struct {
	HomeBase string
	SkelDir  string

	// lookup resolves a username to local uid/gid; swappable in tests.
	lookup func(username string) (*user.User, error)
}

func NewManager(homeBase, skelDir string) *Manager {
	return &Manager{
		HomeBase: homeBase,
		SkelDir:  skelDir,
		lookup:   user.Lookup,
	}
}

// Path returns the home directory path for a username.
func (m *Manager) Path(username string) string {
	return filepath.Join(m.HomeBase, username)
}

// Create builds the home directory with the given mode, merges the
// skeleton tree into it, and sets ownership to the account's uid/gid.
// A pre-existing directory is not an error: the skeleton merge and
// ownership pass still run, so re-provisioning converges. When the
// account cannot be resolved on the local system yet (directory entry
// not propagated to NSS), the ownership pass is skipped with a warning
// instead of failing the step.
func (m *Manager) Create(username string, mode os.FileMode) error {
	log := logger.L()
	home := m.Path(username)

	if err := os.MkdirAll(home, mode); err != nil {
		return fmt.Errorf("creating %s: %w", home, err)
	}
	if err := os.Chmod(home, mode); err != nil {
		return fmt.Errorf("setting mode on %s: %w", home, err)
	}

	if _, err := os.Stat(m.SkelDir); err == nil {
		if err := copyTree(m.SkelDir, home); err != nil {
			return fmt.Errorf("copying skeleton into %s: %w", home, err)
		}
	}

	u, err := m.lookup(username)
	if err != nil {
		log.Warnf("user %s not resolvable on this system yet, skipping ownership of %s", username, home)
	} else {
		uid, uidErr := strconv.Atoi(u.Uid)
		gid, gidErr := strconv.Atoi(u.Gid)
		if uidErr != nil || gidErr != nil {
			return fmt.Errorf("non-numeric uid/gid for %s: %s/%s", username, u.Uid, u.Gid)
		}
		if err := chownTree(home, uid, gid); err != nil {
			return fmt.Errorf("setting ownership on %s: %w", home, err)
		}
	}

	log.Infof("home directory created for %s", username)
	return nil
}

// Exists reports whether the user's home exists and is a directory.
func (m *Manager) Exists(username string) bool {
	info, err := os.Stat(m.Path(username))
	return err == nil && info.IsDir()
}

// Remove deletes the user's home tree. An absent directory is a no-op.
func (m *Manager) Remove(username string) error {
	return os.RemoveAll(m.Path(username))
}

// copyTree merges src into dst, creating directories as needed and
// overwriting files that already exist.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func chownTree(root string, uid, gid int) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Lchown(path, uid, gid)
	})
}
