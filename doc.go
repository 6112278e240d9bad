// Package passport authenticates users and issues session tokens.
//
// An [Engine] verifies a username and password against a [PrincipalStore], issues a
// signed and wrapped session token, records the login as an active session, and returns
// the user's roles and permissions. Logout removes exactly the session that issued the
// token. Engines are built once through [Builder] and are safe for concurrent use.
//
// Failure messages follow one rule: an unknown username and a wrong password produce the
// same message (see [Message]); a locked account produces its own. Callers distinguish the
// underlying reason with errors.Is for auditing only.
package passport
