// Package session implements the login, refresh and logout flows.
//
// Login verifies a password through an Authenticator and issues one access
// credential (credential.Signer) plus one refresh handle (refresh.Store).
// Refresh trades a live handle for a new credential and a new handle. Logout
// deletes every handle the principal owns.
//
// HTTP integration lives in package authapi.
package session
