package directory

import (
	"fmt"
	"path"
	"strconv"

	"github.com/go-ldap/ldap/v3"

	"github.com/m-217/useradmin/logger"
	"github.com/m-217/useradmin/useradmin/config"
	"github.com/m-217/useradmin/useradmin/secrets"
)

// conn is the slice of *ldap.Conn this package uses, extracted so tests
// can substitute a fake.
type conn interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Del(req *ldap.DelRequest) error
	Modify(req *ldap.ModifyRequest) error
	Close() error
}

// LDAPManager implements Manager against an LDAP directory. The
// connection is established lazily on first use so status-only commands
// that never touch the directory do not prompt for a bind password.
type LDAPManager struct {
	cfg      config.LDAP
	homeBase string
	secrets  secrets.Provider

	conn conn
	dial func() (conn, error)
}

func NewLDAPManager(cfg config.LDAP, homeBase string, provider secrets.Provider) *LDAPManager {
	m := &LDAPManager{
		cfg:      cfg,
		homeBase: homeBase,
		secrets:  provider,
	}
	m.dial = m.dialAndBind
	return m
}

func (m *LDAPManager) dialAndBind() (conn, error) {
	l, err := ldap.DialURL(m.cfg.Server)
	if err != nil {
		ldapError("dialAndBind", "DialURL", err)
		return nil, err
	}

	password := m.cfg.BindPassword
	if password == "" {
		password, err = m.secrets.Get(secrets.LDAPBind)
		if err != nil {
			l.Close()
			return nil, err
		}
	}

	if err := l.Bind(m.cfg.BindDN, password); err != nil {
		ldapError("dialAndBind", "Bind", err)
		l.Close()
		return nil, err
	}
	return l, nil
}

func (m *LDAPManager) getConn() (conn, error) {
	if m.conn == nil {
		c, err := m.dial()
		if err != nil {
			return nil, err
		}
		m.conn = c
	}
	return m.conn, nil
}

func (m *LDAPManager) Close() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

// Every ldap error is logged through here in one format to keep them
// greppable.
func ldapError(method, ldapMethod string, e error) {
	logger.L().Errorf("LDAPERROR - Method: %s LDAPmethod: %s Error: %s", method, ldapMethod, e)
}

// UserDN returns the DN for a user entry.
func (m *LDAPManager) UserDN(username string) string {
	return fmt.Sprintf("uid=%s,%s,%s", username, m.cfg.UserOU, m.cfg.BaseDN)
}

// GroupDN returns the DN for a group entry.
func (m *LDAPManager) GroupDN(name string) string {
	return fmt.Sprintf("cn=%s,%s,%s", name, m.cfg.GroupOU, m.cfg.BaseDN)
}

// entryExists runs a base-scope probe on dn. LDAP result 32 (no such
// object) is a normal false.
func (m *LDAPManager) entryExists(dn string) (bool, error) {
	c, err := m.getConn()
	if err != nil {
		return false, err
	}

	req := ldap.NewSearchRequest(dn, ldap.ScopeBaseObject, ldap.NeverDerefAliases,
		0, 0, false, "(objectClass=*)", []string{"dn"}, nil)
	res, err := c.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return false, nil
		}
		ldapError("entryExists", "Search", err)
		return false, err
	}
	return len(res.Entries) > 0, nil
}

func (m *LDAPManager) UserExists(username string) (bool, error) {
	return m.entryExists(m.UserDN(username))
}

func (m *LDAPManager) GroupExists(name string) (bool, error) {
	return m.entryExists(m.GroupDN(name))
}

func (m *LDAPManager) AddUser(u NewUser) error {
	c, err := m.getConn()
	if err != nil {
		return err
	}

	fullName := fmt.Sprintf("%s %s", u.Firstname, u.Surname)
	uid := strconv.Itoa(u.UID)

	addReq := ldap.NewAddRequest(m.UserDN(u.Username), []ldap.Control{})
	addReq.Attribute("objectClass", []string{
		"top", "person", "organizationalPerson", "inetOrgPerson", "posixAccount", "shadowAccount",
	})
	addReq.Attribute("uid", []string{u.Username})
	addReq.Attribute("uidNumber", []string{uid})
	addReq.Attribute("gidNumber", []string{uid})
	addReq.Attribute("cn", []string{fullName})
	addReq.Attribute("sn", []string{u.Surname})
	addReq.Attribute("givenName", []string{u.Firstname})
	addReq.Attribute("homeDirectory", []string{path.Join(m.homeBase, u.Username)})
	addReq.Attribute("loginShell", []string{"/bin/bash"})
	addReq.Attribute("description", []string{fmt.Sprintf("User %s (%s)", u.Username, fullName)})

	if err := c.Add(addReq); err != nil {
		ldapError("AddUser", "Add", err)
		return err
	}

	logger.L().Infof("user %s added to the directory", u.Username)
	return nil
}

func (m *LDAPManager) AddGroup(name string, gid int, member string) error {
	c, err := m.getConn()
	if err != nil {
		return err
	}

	addReq := ldap.NewAddRequest(m.GroupDN(name), []ldap.Control{})
	addReq.Attribute("objectClass", []string{"top", "posixGroup"})
	addReq.Attribute("cn", []string{name})
	addReq.Attribute("gidNumber", []string{strconv.Itoa(gid)})
	addReq.Attribute("memberUid", []string{member})
	addReq.Attribute("description", []string{fmt.Sprintf("Primary group for user %s", member)})

	if err := c.Add(addReq); err != nil {
		ldapError("AddGroup", "Add", err)
		return err
	}

	logger.L().Infof("group %s created", name)
	return nil
}

func (m *LDAPManager) AddGroupMember(group, username string) error {
	log := logger.L()
	c, err := m.getConn()
	if err != nil {
		return err
	}

	groupDN := m.GroupDN(group)
	req := ldap.NewSearchRequest(groupDN, ldap.ScopeBaseObject, ldap.NeverDerefAliases,
		0, 0, false, "(objectClass=*)", []string{"memberUid"}, nil)
	res, err := c.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			log.Debugf("group %s does not exist, skipping membership for %s", group, username)
			return nil
		}
		ldapError("AddGroupMember", "Search", err)
		return err
	}
	if len(res.Entries) == 0 {
		log.Debugf("group %s does not exist, skipping membership for %s", group, username)
		return nil
	}

	// The directory rejects duplicate attribute values, so re-running
	// provisioning must not re-add an existing member.
	for _, member := range res.Entries[0].GetAttributeValues("memberUid") {
		if member == username {
			log.Debugf("user %s already a member of %s", username, group)
			return nil
		}
	}

	modReq := ldap.NewModifyRequest(groupDN, []ldap.Control{})
	modReq.Add("memberUid", []string{username})
	if err := c.Modify(modReq); err != nil {
		ldapError("AddGroupMember", "Modify", err)
		return err
	}

	log.Infof("user %s added to group %s", username, group)
	return nil
}

func (m *LDAPManager) DeleteUser(username string) error {
	return m.deleteEntry(m.UserDN(username), "DeleteUser")
}

func (m *LDAPManager) DeleteGroup(name string) error {
	return m.deleteEntry(m.GroupDN(name), "DeleteGroup")
}

func (m *LDAPManager) deleteEntry(dn, method string) error {
	c, err := m.getConn()
	if err != nil {
		return err
	}

	exists, err := m.entryExists(dn)
	if err != nil {
		return err
	}
	if !exists {
		logger.L().Debugf("%s: %s not present, nothing to delete", method, dn)
		return nil
	}

	if err := c.Del(ldap.NewDelRequest(dn, []ldap.Control{})); err != nil {
		ldapError(method, "Del", err)
		return err
	}
	logger.L().Infof("%s deleted", dn)
	return nil
}

func (m *LDAPManager) ListUsers() ([]UserEntry, error) {
	c, err := m.getConn()
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s,%s", m.cfg.UserOU, m.cfg.BaseDN)
	req := ldap.NewSearchRequest(base, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		0, 0, false, "(objectClass=posixAccount)",
		[]string{"uid", "uidNumber", "cn", "homeDirectory"}, nil)

	res, err := c.Search(req)
	if err != nil {
		ldapError("ListUsers", "Search", err)
		return nil, err
	}

	users := make([]UserEntry, 0, len(res.Entries))
	for _, entry := range res.Entries {
		users = append(users, UserEntry{
			Username:      entry.GetAttributeValue("uid"),
			UIDNumber:     entry.GetAttributeValue("uidNumber"),
			CN:            entry.GetAttributeValue("cn"),
			HomeDirectory: entry.GetAttributeValue("homeDirectory"),
		})
	}
	return users, nil
}
