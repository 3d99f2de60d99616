//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Dep mg.Namespace

// Install installs a golang tool via go install.
func (Dep) Install(dep string) error {
	if err := sh.Run("go", "install", dep); err != nil {
		return fmt.Errorf("error installing dependency: %w", err)
	}

	return nil
}

// Tidy tidies and verifies the module dependencies.
func (Dep) Tidy() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return err
	}

	return sh.Run("go", "mod", "verify")
}
