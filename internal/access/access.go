// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

// Package access decides which request paths need a principal and
// extracts that principal from request credentials.
//
// Exemption lists are ordered path patterns:
//   - "/api/v1/status/" exempts "/api/v1/status" and "/api/v1/status/"
//   - "/public/*" exempts every path starting with "/public/"
//
// Only the first pattern containing "*" is consulted; once one is found the
// remaining entries are ignored.
package access

import "strings"

// Wildcard marks a prefix exemption.
const Wildcard = "*"

// RequiresAuth reports whether path needs an authenticated principal given
// the exemption list. A nil or empty list protects every path.
func RequiresAuth(path string, exempt []string) bool {
	if len(exempt) == 0 {
		return true
	}

	for _, pattern := range exempt {
		if strings.Contains(pattern, Wildcard) {
			return !strings.HasPrefix(path, strings.ReplaceAll(pattern, Wildcard, ""))
		}
	}

	for _, pattern := range exempt {
		if pattern == path || pattern == path+"/" {
			return false
		}
	}
	return true
}
