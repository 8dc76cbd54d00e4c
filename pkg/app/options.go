package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions is implemented by the option struct of every command.
type NamedFlagSetOptions interface {
	// Flags returns the command flags grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in derived fields after flags and config are loaded.
	Complete() error

	// Validate reports every invalid setting at once.
	Validate() error
}
