// Package simulation drives the lending workflow with concurrent actors.
//
// Every actor is a registered user who owns a few books. In each round all actors run
// concurrently: they resolve the requests waiting in their ledger, list books they hold,
// and request one book listed by somebody else. Races between actors are expected and
// counted; only infrastructure faults stop a run. After the last round the invariants
// are audited, so a run doubles as a stress test of the concurrency guarantees.
package simulation
