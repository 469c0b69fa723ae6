// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package app runs the pin database on a dqlite node. It is only built with
// the dqlite tag on linux, where libdqlite is available.
package app
