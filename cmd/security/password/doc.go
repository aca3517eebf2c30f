// Package password hashes and verifies user passwords.
//
// New hashes are Argon2id in PHC string form by default. Verification also
// accepts bcrypt hashes ($2a$, $2b$, $2y$) so accounts imported from older
// deployments keep working; NeedsRehash tells callers when to upgrade them.
//
// Encoded hashes are untrusted input: Verify rejects Argon2id parameters that
// are far above the configured cost.
package password
