// Package surql compiles fluent query descriptions into SurrealQL text and
// normalizes raw SurrealDB responses into uniform rows.
//
// Everything in this package is a pure transformation over immutable values:
// condition trees, query plans and aggregation pipelines never mutate in
// place, so previously returned values stay valid while callers keep
// chaining. The only suspension point is the Executor collaborator, which
// submits rendered query text and returns the raw per-statement response.
package surql
