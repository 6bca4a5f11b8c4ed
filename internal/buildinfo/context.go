// Package buildinfo contains build-time metadata kept apart from user configuration.
package buildinfo

import (
	"fmt"
	"runtime"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Context contains build-time metadata. It is created once at startup from
// values injected with -ldflags and is never part of the configuration file.
type Context struct {
	version   string
	buildDate string
	systemID  string
}

// NewContext creates a Context.
func NewContext(version, buildDate, systemID string) *Context {
	return &Context{version: version, buildDate: buildDate, systemID: systemID}
}

// Version returns the release tag of the binary.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns when the binary was built.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// SystemID returns the instance identifier used to tag telemetry events.
func (c *Context) SystemID() string {
	if c == nil || c.systemID == "" {
		return UnknownValue
	}
	return c.systemID
}

// String formats the metadata for the version command and log lines.
func (c *Context) String() string {
	return fmt.Sprintf("radmon %s (built %s, %s %s/%s)",
		c.Version(), c.BuildDate(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// WithSystemID returns a copy of c tagged with systemID.
func (c *Context) WithSystemID(systemID string) *Context {
	if c == nil {
		return NewContext("", "", systemID)
	}
	return &Context{version: c.version, buildDate: c.buildDate, systemID: systemID}
}
