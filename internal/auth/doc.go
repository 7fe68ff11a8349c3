// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

// Package auth provides the credential and session lifecycle for authkeep.
//
// # Domain Types
//
// A User is the single persisted entity. It carries the hashed password and
// the nullable session id and reset token; all three are mutated only through
// a UserRepository using Fields, never by writing the struct back.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration and password login
//   - SessionManager - create, resolve and destroy session ids
//   - ResetManager - issue and consume single-use reset tokens
//
// Storage is injected: UserRepository and SessionStore have postgres,
// in-memory and (for sessions) redis implementations in subpackages.
package auth
