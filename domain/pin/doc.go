// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pin holds the persistence and service layers for file pins. A pin
// keeps one replica of a file resident on one pool by way of a sticky flag
// held on that pool. The lease database is the source of truth and the
// sticky flags on the pools mirror it.
package pin
