// Package services holds cross-cutting helpers shared by the external
// service clients: the error taxonomy used to classify failures and the
// context annotations threaded through pipeline operations.
package services
