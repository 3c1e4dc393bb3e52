// Package config loads, normalizes, and validates the TOML configuration
// for ticketpdf. Required fields (API endpoint, board identifiers, column
// mapping, required status label) are validated eagerly at startup.
package config
