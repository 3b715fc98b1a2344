// Package setup owns the persisted settings of the CLI: where the settings
// file lives, how it is loaded together with environment overrides, and how
// the setup command writes it.
//
// It is the only package allowed to use a package-level logger.
package setup
