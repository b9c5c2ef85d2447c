// Package client implements the catpoint CLI operations.
//
// Each operation talks to the security server through the shared gRPC
// client and renders the result as text, with sensors shown as a table.
package client
