// Package pollengine implements the rankit polling and rating engine inside
// the ranking context.
//
// The module owns pairwise polls: it draws two ranks from a category using a
// run counter with a random tie-break, keeps at most one active pairing per
// account, and applies Elo updates when the account submits a preference.
// Catalog maintenance (categories, things, ranks) and category statistics
// live here too because they mutate the same rank rows. Infrastructure sits
// behind ports and adapters; every multi-step operation runs inside one unit
// of work.
package pollengine
