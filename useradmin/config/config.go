package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

// DefaultFileName is the config file looked up in the home directory
// and, failing that, in the current working directory.
const DefaultFileName = ".useradmin.conf"

// LDAP holds the directory service connection settings.
type LDAP struct {
	Server       string
	BindDN       string
	BindPassword string
	BaseDN       string
	UserOU       string
	GroupOU      string
}

// Kerberos holds the realm credential store settings.
type Kerberos struct {
	Realm           string
	KadminPrincipal string
	KadminPassword  string
	CheckMethod     string
}

// NFS holds the shared home directory tree settings.
type NFS struct {
	HomeBase        string
	SkelDir         string
	HomePermissions os.FileMode
}

// Quotas holds the disk quota limits applied to new accounts.
type Quotas struct {
	SoftLimit      string
	HardLimit      string
	InodeSoftLimit string
	InodeHardLimit string
	FilesystemType string // empty means auto-detect
}

// Logging holds the log level and file destination.
type Logging struct {
	Level string
	File  string
}

// Config is the full, validated application configuration.
type Config struct {
	LDAP     LDAP
	Kerberos Kerberos
	NFS      NFS
	Quotas   Quotas
	Logging  Logging
}

// ErrCreatedDefault is returned by Load when no config file existed and
// a default one was written for the administrator to edit.
type ErrCreatedDefault struct {
	Path string
}

func (e *ErrCreatedDefault) Error() string {
	return fmt.Sprintf("created default config file %s, please edit it before use", e.Path)
}

// Resolve returns the config file path to use. An explicit path wins;
// otherwise ~/.useradmin.conf is preferred, then ./useradmin.conf. When
// neither exists the home location is returned so Load can create it.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}

	home, err := os.UserHomeDir()
	homeConfig := ""
	if err == nil {
		homeConfig = filepath.Join(home, DefaultFileName)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}
	current := "useradmin.conf"
	if _, err := os.Stat(current); err == nil {
		return current
	}
	if homeConfig != "" {
		return homeConfig
	}
	return current
}

// Load reads the config file at path, creating a commented default file
// first if none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		return nil, &ErrCreatedDefault{Path: path}
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return fromFile(f)
}

func fromFile(f *ini.File) (*Config, error) {
	cfg := &Config{}

	ldap := f.Section("LDAP")
	cfg.LDAP = LDAP{
		Server:       ldap.Key("server").MustString("ldap://localhost:389"),
		BindDN:       ldap.Key("bind_dn").String(),
		BindPassword: ldap.Key("bind_password").String(),
		BaseDN:       ldap.Key("base_dn").String(),
		UserOU:       ldap.Key("user_ou").MustString("ou=people"),
		GroupOU:      ldap.Key("group_ou").MustString("ou=groups"),
	}

	krb := f.Section("KERBEROS")
	cfg.Kerberos = Kerberos{
		Realm:           krb.Key("realm").String(),
		KadminPrincipal: krb.Key("kadmin_principal").String(),
		KadminPassword:  krb.Key("kadmin_password").String(),
		CheckMethod:     krb.Key("check_method").MustString("kadmin"),
	}

	nfs := f.Section("NFS")
	permStr := nfs.Key("home_permissions").MustString("750")
	perm, err := strconv.ParseUint(permStr, 8, 32)
	if err != nil {
		return nil, fmt.Errorf("home_permissions %q is not an octal mode: %w", permStr, err)
	}
	cfg.NFS = NFS{
		HomeBase:        nfs.Key("home_base").MustString("/home"),
		SkelDir:         nfs.Key("skel_dir").MustString("/etc/skel"),
		HomePermissions: os.FileMode(perm),
	}

	quotas := f.Section("QUOTAS")
	cfg.Quotas = Quotas{
		SoftLimit:      quotas.Key("default_soft_limit").MustString("100M"),
		HardLimit:      quotas.Key("default_hard_limit").MustString("200M"),
		InodeSoftLimit: quotas.Key("default_inode_soft_limit").MustString("1000"),
		InodeHardLimit: quotas.Key("default_inode_hard_limit").MustString("2000"),
		FilesystemType: quotas.Key("filesystem_type").String(),
	}

	logging := f.Section("LOGGING")
	cfg.Logging = Logging{
		Level: logging.Key("level").MustString("info"),
		File:  logging.Key("file").MustString("./useradmin.log"),
	}

	return cfg, nil
}

func writeDefault(path string) error {
	f := ini.Empty()

	ldap := f.Section("LDAP")
	ldap.Key("server").SetValue("ldap://localhost:389")
	ldap.Key("bind_dn").SetValue("cn=admin,dc=example,dc=local")
	ldap.Key("bind_password").SetValue("")
	ldap.Key("base_dn").SetValue("dc=example,dc=local")
	ldap.Key("user_ou").SetValue("ou=people")
	ldap.Key("group_ou").SetValue("ou=groups")

	krb := f.Section("KERBEROS")
	krb.Key("realm").SetValue("EXAMPLE.LOCAL")
	krb.Key("kadmin_principal").SetValue("admin/admin@EXAMPLE.LOCAL")
	krb.Key("kadmin_password").SetValue("")
	krb.Key("check_method").SetValue("kadmin")

	nfs := f.Section("NFS")
	nfs.Key("home_base").SetValue("/home")
	nfs.Key("skel_dir").SetValue("/etc/skel")
	nfs.Key("home_permissions").SetValue("750")

	quotas := f.Section("QUOTAS")
	quotas.Key("default_soft_limit").SetValue("100M")
	quotas.Key("default_hard_limit").SetValue("200M")
	quotas.Key("default_inode_soft_limit").SetValue("1000")
	quotas.Key("default_inode_hard_limit").SetValue("2000")

	logging := f.Section("LOGGING")
	logging.Key("level").SetValue("info")
	logging.Key("file").SetValue("./useradmin.log")

	return f.SaveTo(path)
}
