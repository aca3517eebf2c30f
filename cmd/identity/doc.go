// Package identity owns user records for authgate.
//
// It provides the user model with its role tags, Postgres and in-memory
// stores, and Service, which registers accounts and checks passwords.
// Token handling lives elsewhere; identity only answers "who is this user"
// by id or username.
package identity
