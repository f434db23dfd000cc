package main

import (
	"github.com/spf13/cobra"

	"github.com/m-217/useradmin/useradmin/engine"
)

// stepFlags is the step selection shared by add-user and add-file.
type stepFlags struct {
	all      bool
	ldap     bool
	kerberos bool
	home     bool
	quota    bool
	steps    []string
}

func (f *stepFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.all, "all", false, "run all steps (ldap, kerberos, home, quota)")
	cmd.Flags().BoolVar(&f.ldap, "ldap", false, "add the user to LDAP only")
	cmd.Flags().BoolVar(&f.kerberos, "kerberos", false, "create the Kerberos principal only")
	cmd.Flags().BoolVar(&f.home, "home", false, "create the home directory only")
	cmd.Flags().BoolVar(&f.quota, "quota", false, "set the disk quota only")
	cmd.Flags().StringSliceVar(&f.steps, "steps", nil, "run only the named steps (ldap, kerberos, home, quota)")
	cmd.MarkFlagsMutuallyExclusive("all", "ldap", "kerberos", "home", "quota", "steps")
}

// resolve returns the selected steps; with no selection every step
// runs.
func (f *stepFlags) resolve() ([]engine.Step, error) {
	switch {
	case f.all:
		return engine.AllSteps(), nil
	case f.ldap:
		return []engine.Step{engine.StepLDAP}, nil
	case f.kerberos:
		return []engine.Step{engine.StepKerberos}, nil
	case f.home:
		return []engine.Step{engine.StepHome}, nil
	case f.quota:
		return []engine.Step{engine.StepQuota}, nil
	}

	if len(f.steps) > 0 {
		steps := make([]engine.Step, 0, len(f.steps))
		for _, name := range f.steps {
			step, err := engine.ParseStep(name)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		return steps, nil
	}

	return engine.AllSteps(), nil
}
