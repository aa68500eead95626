// Package version carries the connector release version.
package version

// Current is the release version, without a leading v. Release tooling
// bumps it.
const Current = "0.1.0"

// UserAgent is the default User-Agent for gateway requests.
const UserAgent = "target-intacct/" + Current
