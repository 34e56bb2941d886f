// Package breadcrumbs materializes ancestor chains and direct children for
// flat, single-parent hierarchies that are partitioned into independent
// scopes (festivals).
//
// An [Engine] pulls the scope list from a [ScopeSource] and, for each scope,
// the flat entity list from an [EntitySource]. It derives one [Record] per
// entity and publishes the scope into a [Store] with a single swap, so a
// reader sees either the previous or the new version of a scope and never a
// mix. Lookups go through [Engine.Get] and never fail: an unknown scope or
// entity is reported as not found.
//
// The engine is generic over the entity type. Categories and places each get
// their own Engine bound to a different EntitySource.
//
// # Failure handling
//
// Rebuild never returns an error. Per-scope outcomes are collected in a
// [Report]. With [AbortOnFailure] the run stops at the first failing scope
// and later scopes keep whatever records they had; with [ContinueOnFailure]
// the run goes on with the next scope.
//
// Malformed data never fails a scope. A walk that reaches an entity with no
// parent field, a dangling parent reference or a cycle stops there.
package breadcrumbs
