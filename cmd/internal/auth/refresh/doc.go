// Package refresh manages long-lived refresh handles.
//
// A handle pairs an opaque random token with its owner and expiry. The Store
// generates tokens, computes expiries and bounds every backend call with a
// timeout; a Backend only persists records keyed by the token digest. Three
// backends exist: Redis (passive key expiry), Postgres (periodic Sweep) and an
// in-memory map for development and tests.
package refresh
