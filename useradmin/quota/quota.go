package quota

import (
	"context"
	"fmt"
	"sync"

	cm "github.com/m-217/useradmin/useradmin/commandmanager"
)

// NotSet is rendered for a user with no quota row in any backend report.
const NotSet = "not set"

// Kind tags which backend family produced a record. The two report
// formats differ: xfs_quota reports soft and hard limits separately
// while the generic quota tool only exposes usage and the soft limit.
type Kind int

const (
	KindGeneric Kind = iota
	KindXFS
)

// Usage is one used/soft/hard triple, kept as the backend's own text
// (xfs_quota -h prints human-readable sizes like 50M).
type Usage struct {
	Used string
	Soft string
	Hard string
}

// Record is the canonical per-user quota view. Either half may be nil
// when the backend reported nothing for that dimension.
type Record struct {
	Username string
	Kind     Kind
	Blocks   *Usage
	Inodes   *Usage
}

// String renders the record in the fixed display format shared by the
// batch and single-user lookup paths.
func (r Record) String() string {
	if r.Kind == KindXFS {
		return fmt.Sprintf("blocks: %s; inodes: %s", xfsTriple(r.Blocks), xfsTriple(r.Inodes))
	}
	if r.Inodes == nil {
		return fmt.Sprintf("blocks: %s/%s", r.Blocks.Used, r.Blocks.Soft)
	}
	return fmt.Sprintf("blocks: %s/%s; inodes: %s/%s",
		r.Blocks.Used, r.Blocks.Soft, r.Inodes.Used, r.Inodes.Soft)
}

func xfsTriple(u *Usage) string {
	if u == nil {
		return "-"
	}
	return fmt.Sprintf("%s/%s/%s", u.Used, u.Soft, u.Hard)
}

// Report maps usernames to their quota records. One report is built per
// listing invocation and reused for every user in it.
type Report map[string]Record

// Render returns the display string for username, or NotSet when the
// backend reported no row for it.
func (r Report) Render(username string) string {
	rec, ok := r[username]
	if !ok {
		return NotSet
	}
	return rec.String()
}

// Limits are the thresholds applied when setting a user quota. Block
// limits accept tool-native suffixes (100M); inode limits are counts.
type Limits struct {
	Soft      string
	Hard      string
	InodeSoft string
	InodeHard string
}

// Manager dispatches quota operations to the backend matching the
// filesystem hosting the home tree.
type Manager interface {
	// SetUserQuota applies the configured limits to one user. Backend
	// failures are logged and reported as false, never raised.
	SetUserQuota(ctx context.Context, username string) bool

	// FetchAllQuotas builds the report for every user in at most two
	// tool invocations (two only for xfs, which reports blocks and
	// inodes separately).
	FetchAllQuotas(ctx context.Context) Report

	// FetchUserQuota returns the display string for a single user.
	FetchUserQuota(ctx context.Context, username string) string
}

// NewManager selects the backend for the given filesystem type.
// Everything that is not xfs is served by the generic quota tools.
func NewManager(runner cm.Runner, path, filesystemType string, limits Limits) Manager {
	if filesystemType == "xfs" {
		return &xfsManager{runner: runner, path: path, limits: limits}
	}
	return &genericManager{runner: runner, path: path, limits: limits}
}

// NewLazyManager defers backend selection until the first quota
// operation, so commands that never touch quotas do not probe the
// mount table. An empty override means auto-detection at that point.
func NewLazyManager(runner cm.Runner, path, override string, limits Limits) Manager {
	return &lazyManager{runner: runner, path: path, override: override, limits: limits}
}

type lazyManager struct {
	runner   cm.Runner
	path     string
	override string
	limits   Limits

	once    sync.Once
	backend Manager
}

func (m *lazyManager) get(ctx context.Context) Manager {
	m.once.Do(func() {
		fsType := m.override
		if fsType == "" {
			fsType = DetectFilesystemType(ctx, m.runner, m.path)
		}
		m.backend = NewManager(m.runner, m.path, fsType, m.limits)
	})
	return m.backend
}

func (m *lazyManager) SetUserQuota(ctx context.Context, username string) bool {
	return m.get(ctx).SetUserQuota(ctx, username)
}

func (m *lazyManager) FetchAllQuotas(ctx context.Context) Report {
	return m.get(ctx).FetchAllQuotas(ctx)
}

func (m *lazyManager) FetchUserQuota(ctx context.Context, username string) string {
	return m.get(ctx).FetchUserQuota(ctx, username)
}
