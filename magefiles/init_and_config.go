//go:build mage

package main

import (
	"os"
	"strconv"
	"sync"

	"github.com/magefile/mage/mg"
)

// golangciLint is the linter installed on CI runners.
const golangciLint = "github.com/golangci/golangci-lint/cmd/golangci-lint@latest"

// isCIRunner determines if the current process is running in a Continuous Integration (CI) environment.
// It checks the values of the "CI" and "GITHUB_ACTIONS" environment variables.
var isCIRunner = sync.OnceValue(func() bool {
	ciRunner, _ := strconv.ParseBool(os.Getenv("CI"))
	githubRunner, _ := strconv.ParseBool(os.Getenv("GITHUB_ACTIONS"))
	return ciRunner || githubRunner
})

// isDebugMode is true when RUNNER_DEBUG is set or when running locally.
var isDebugMode = sync.OnceValue(func() bool {
	got, _ := strconv.ParseBool(os.Getenv("RUNNER_DEBUG"))
	return got || !isCIRunner()
})

// Init initializes the mage environment. Tools are only installed on CI runners so local binaries are
// never overridden.
func Init() error {
	if !isCIRunner() {
		return nil
	}

	mg.Deps(
		mg.F(Dep.Install, golangciLint),
	)
	return nil
}
