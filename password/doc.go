// Package password hashes and verifies user passwords.
//
// # Output format
//
// New hashes are Argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] verifies hashes carried over from stores that used bcrypt, and
// [Auto] picks between the two by prefix. NeedsUpgrade on every hasher tells the
// caller a stored hash should be replaced on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goSession package.
//   - Log plaintext passwords.
package password
