package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m-217/useradmin/logger"
	cm "github.com/m-217/useradmin/useradmin/commandmanager"
	"github.com/m-217/useradmin/useradmin/config"
	"github.com/m-217/useradmin/useradmin/directory"
	"github.com/m-217/useradmin/useradmin/engine"
	"github.com/m-217/useradmin/useradmin/homedir"
	"github.com/m-217/useradmin/useradmin/quota"
	"github.com/m-217/useradmin/useradmin/realm"
	"github.com/m-217/useradmin/useradmin/secrets"
)

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "useradmin",
	Short: "Provision and deprovision user accounts across LDAP, Kerberos, NFS homes, and disk quotas",
	Long: `useradmin onboards and removes Unix user accounts across four independent
subsystems: an LDAP directory, a Kerberos realm, a shared home directory
tree, and the disk quota subsystem.

Accounts can be added one at a time or in bulk from a manifest file, and
each provisioning step can be selected individually so a transiently
unavailable subsystem can be retried later without redoing the rest.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the config file (default ~/.useradmin.conf, then ./useradmin.conf)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug log level")
}

// app bundles the configured engine and its collaborators for one
// command invocation.
type app struct {
	cfg    *config.Config
	engine *engine.Engine
	dir    *directory.LDAPManager
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.Resolve(configFile))
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	if err := logger.Configure(level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	static := secrets.Static{}
	if cfg.LDAP.BindPassword != "" {
		static[secrets.LDAPBind] = cfg.LDAP.BindPassword
	}
	if cfg.Kerberos.KadminPassword != "" {
		static[secrets.KadminPassword] = cfg.Kerberos.KadminPassword
	}
	provider := secrets.Layered{static, secrets.NewTerminalProvider()}

	runner := &cm.UnixCommandManager{}

	dir := directory.NewLDAPManager(cfg.LDAP, cfg.NFS.HomeBase, provider)

	eng := &engine.Engine{
		Directory: dir,
		Realm: realm.NewKadminManager(runner, cfg.Kerberos.Realm,
			cfg.Kerberos.KadminPrincipal, cfg.Kerberos.CheckMethod, provider),
		Home: homedir.NewManager(cfg.NFS.HomeBase, cfg.NFS.SkelDir),
		Quota: quota.NewLazyManager(runner, cfg.NFS.HomeBase, cfg.Quotas.FilesystemType, quota.Limits{
			Soft:      cfg.Quotas.SoftLimit,
			Hard:      cfg.Quotas.HardLimit,
			InodeSoft: cfg.Quotas.InodeSoftLimit,
			InodeHard: cfg.Quotas.InodeHardLimit,
		}),
		HomeMode: cfg.NFS.HomePermissions,
	}

	return &app{cfg: cfg, engine: eng, dir: dir}, nil
}

func (a *app) Close() {
	a.dir.Close()
}
