// Package common holds helpers shared by the server and the CLI.
//
// It provides a gRPC client for the security service with call timeouts and
// utilities to detect the current system actor (hostname/username), which is
// sent as request metadata for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
