//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binary  = "bin/usbidgen"
	mainPkg = "./cmd/usbidgen"
)

// Default target - build the binary
var Default = Build

// Build builds the usbidgen binary
func Build() error {
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", binary, mainPkg)
}

// Test runs all tests with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Generate regenerates usbids.c and usbids.h in the current directory
func Generate() error {
	mg.Deps(Build)
	return sh.RunV(binary, "generate")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Removing", binDir)
	return sh.Rm(binDir)
}

// Lint namespace for linting commands
type Lint mg.Namespace

// Format checks code formatting
func (Lint) Format() error {
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if out != "" {
		return fmt.Errorf("unformatted files:\n%s", out)
	}
	return nil
}

// Vet runs go vet
func (Lint) Vet() error {
	return sh.RunV("go", "vet", "./...")
}
