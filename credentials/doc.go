// Package credentials is a reference credential verifier for hosts that issue tokens.
//
// Passwords are stored as argon2id hashes in PHC string format. Users carry an active flag;
// inactive users are refused exactly like unknown ones from the caller's point of view,
// though the two are distinguishable through errors.Is for logging.
//
// Token issuance itself lives in tokenkit; this package never sees a token.
package credentials
