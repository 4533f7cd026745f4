// Package ledger implements Tally's funds transfer engine.
//
// Balances are integer minor currency units and are mutated only inside a
// single atomic unit of work: both affected accounts are locked in
// ascending ID order (the deadlock-avoidance protocol), balances are
// re-read under the locks, business rules (funds, per-transfer ceiling,
// calendar-day transfer limit) are enforced, and exactly one append-only
// transaction record is written. Any failure rolls the whole unit back;
// no partial balance mutation is ever observable.
//
// Coordination is expressed entirely through the store's row locks and
// commit/rollback; no in-process mutex guards balances, so correctness
// holds across multiple service processes sharing one database.
package ledger
