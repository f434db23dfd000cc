package directory

// UserEntry is one directory account as returned by a listing search.
type UserEntry struct {
	Username      string
	UIDNumber     string
	CN            string
	HomeDirectory string
}

// NewUser carries the attributes needed to create a directory account.
type NewUser struct {
	UID       int
	Username  string
	Surname   string
	Firstname string
}

// Manager encompasses the directory service operations the
// provisioning engine needs. Absence is a normal false/no-op
// everywhere, never an error.
type Manager interface {
	UserExists(username string) (bool, error)
	GroupExists(name string) (bool, error)

	// AddUser creates the user entry.
	AddUser(u NewUser) error

	// AddGroup creates a posixGroup with the given gid and initial
	// member.
	AddGroup(name string, gid int, member string) error

	// AddGroupMember adds username to an existing group's memberUid.
	// Groups that do not exist are skipped silently, and a user already
	// listed is a no-op.
	AddGroupMember(group, username string) error

	// DeleteUser removes the user entry; absent entries are a no-op.
	DeleteUser(username string) error

	// DeleteGroup removes a group entry; absent entries are a no-op.
	DeleteGroup(name string) error

	ListUsers() ([]UserEntry, error)

	Close()
}
