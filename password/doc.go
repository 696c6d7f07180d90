// Package password verifies Argon2id credential hashes in PHC string format.
// The core only ever compares; hashing is provided for fixtures and for
// collaborators that provision identities.
package password
