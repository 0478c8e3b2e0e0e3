// Package surgo is a query-expression and aggregation-pipeline compiler
// for SurrealDB with a thin execution client on top.
//
// The compiler itself lives in pkg/surql and is pure: lookup expressions
// like "age__gte" become SurrealQL text deterministically, with no I/O.
// This package wires the compiler to an executor (HTTP by default, with
// an optional read-through result cache) and adds typed decoding via
// struct tags.
//
// Minimal usage:
//
//	client, err := surgo.New(
//		surgo.WithEndpoint("http://localhost:8000"),
//		surgo.WithNamespace("app"),
//		surgo.WithDatabase("app"),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	rows, err := client.Query("user").
//		Where(surgo.Lookups{"age__gte": 18, "name__contains": "An"}).
//		OrderBy("name", surgo.Asc).
//		Limit(10).
//		All(ctx)
package surgo
