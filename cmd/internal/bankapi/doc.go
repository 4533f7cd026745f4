// Package bankapi exposes Tally's HTTP API: authentication and session
// endpoints, account balance and history, and the transfer operation.
//
// Refresh credentials travel only in an httpOnly cookie scoped to the
// /auth path; access tokens travel in the Authorization header. All
// authentication failures surface as the same 401 body regardless of
// cause.
package bankapi
