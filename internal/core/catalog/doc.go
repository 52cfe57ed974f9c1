// Package catalog holds the domain / industry / module tables the advisor
// recommends from, together with the pure edit operations the admin API
// applies to them.
//
// This is part of the Functional Core - all functions are pure with no I/O.
// Edit operations never mutate their receiver; they return a new Catalog.
//
// # Structure
//
//   - Domains: ordered list of business domains ("Sales", "Service", ...)
//   - Industries: domain -> ordered industries
//   - Modules: domain -> industry -> ordered modules
//
// # Usage
//
//	cat := catalog.Default()
//	modules := cat.ModulesFor("Sales", "Technology")
//	next, err := cat.AddIndustry("Sales", "Insurance")
package catalog
