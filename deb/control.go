package deb

import (
	"fmt"
	"strings"
)

// Control holds the fields of the DEBIAN/control file of a staged binary package.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#binary-package-control-files-debian-control
type Control struct {
	// Package is the short name of the package, e.g. "wget".
	Package string

	// Version is the version number of the package, e.g. "1.12-2.1".
	Version string

	// Section classifies the package into a category (e.g., "utils", "web", "devel").
	Section string

	// Priority represents the importance of this package. Most packages are "optional".
	Priority string

	// Architecture is the target architecture, "all" for architecture-independent packages.
	Architecture string

	// Depends lists packages required by this one, e.g. "libc6 (>= 2.31)".
	Depends []string

	// Maintainer is the "Name <email>" of the person responsible for the package.
	Maintainer string

	// Description is the synopsis, optionally followed by extended description lines.
	Description string
}

// String renders the control file.
//
// Every field is written, in the order Package, Version, Section, Priority, Architecture,
// Depends, Maintainer, Description, even when its value is empty. dpkg-deb requires the
// file to end with a newline, so the description is trimmed and newline-terminated;
// extended description lines are indented by one space and blank ones become " .".
func (c Control) String() string {
	var b strings.Builder

	writeField := func(field ControlField, value string) {
		fmt.Fprintf(&b, "%s: %s\n", field, value)
	}

	writeField(FieldPackage, c.Package)
	writeField(FieldVersion, c.Version)
	writeField(FieldSection, c.Section)
	writeField(FieldPriority, c.Priority)
	writeField(FieldArchitecture, c.Architecture)
	writeField(FieldDepends, strings.Join(c.Depends, ", "))
	writeField(FieldMaintainer, c.Maintainer)

	lines := strings.Split(strings.TrimSpace(c.Description), "\n")
	writeField(FieldDescription, strings.TrimSpace(lines[0]))
	for _, line := range lines[1:] {
		switch {
		case strings.TrimSpace(line) == "":
			b.WriteString(" .\n")
		case strings.HasPrefix(line, " "):
			fmt.Fprintf(&b, "%s\n", strings.TrimRight(line, " \t\r"))
		default:
			fmt.Fprintf(&b, " %s\n", strings.TrimRight(line, " \t\r"))
		}
	}

	return b.String()
}

// ParseField returns the value of a single-line field from the raw text of a control file.
// It returns an empty string if the field is absent.
func ParseField(control string, field ControlField) string {
	prefix := string(field) + ":"
	for _, line := range strings.Split(control, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}
