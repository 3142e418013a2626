// Package main implements lendingctl, the operator command line for the book lending workflow.
//
// Every command opens the store selected by the LENDING_* environment (optionally read from a
// .env file), runs one workflow operation and prints the result as JSON on stdout. Failures are
// printed as JSON on stderr and mapped to an exit code per outcome:
//
//	0 ok, 1 infrastructure, 2 invalid input, 3 not found, 4 forbidden, 5 conflict, 6 invalid state
//
// simulate runs concurrent simulated users and audits the invariants afterwards.
//
// Commands that act on behalf of a user take the caller's id with --as.
package main
