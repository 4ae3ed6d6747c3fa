// Package models defines persistent entities and repository interfaces.
//
// [Attempt] records one login attempt: its mode, the callback port that was bound (zero for the
// authorization-code exchange), the terminal outcome and its message, and start/finish timestamps.
// Tokens are never part of the model.
//
// All persistent entities implement [Model]; [Repository] defines the standard CRUD operations.
package models
