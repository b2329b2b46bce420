/*
Package session implements snapshot persistence orchestration for wizard sessions.

Store is the facade the wizard talks to: it saves committed payloads, treats a
missing or unreadable snapshot as "no saved session", and clears snapshots
idempotently. Manager sits underneath and serialises access per session key,
optionally coordinating replicas through a ports.DistributedLocker.
*/
package session
