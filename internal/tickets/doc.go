// Package tickets holds the domain model for the monthly report run: items
// materialized from remote pages, the month/status filter, and the
// cross-item attachment deduplication index.
package tickets
