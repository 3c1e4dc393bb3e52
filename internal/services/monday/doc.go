// Package monday implements the GraphQL client for the project-tracking
// service. Pagination is cursor driven and strictly sequential; transient
// HTTP failures are retried with exponential backoff while a structurally
// successful response carrying an errors field aborts immediately.
package monday
