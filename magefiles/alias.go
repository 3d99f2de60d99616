//go:build mage

package main

var Aliases = map[string]any{
	"tidy":  Dep.Tidy,
	"build": Build.All,
	"test":  Test.Unit,
	"race":  Test.Race,
	"lint":  Lint,
}
