// Copyright 2024 The Memoflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codedigest computes content fingerprints of executable
// units and the values they reference.
//
// A digest is a stable function of everything that can influence a
// computation's result: a function's instructions, its constants, its
// parameter defaults, and the current values of the globals, cells,
// and attributes it names, followed transitively. Two functions with
// equal digests behave identically; a change to any ingredient
// changes the digest. Digests are therefore suitable as cache keys
// for memoizing expensive calls across processes.
//
// The package has two layers. ExtractRefs walks a compiled unit's
// instructions and reports, in order, each value the unit would
// observe when run, resolving names against a Context of globals,
// cells, and locals. Hasher folds those references, together with the
// unit's own code and constants, into a fixed-size Digest, handling
// reference cycles and distinguishing every type in the value model
// with a stable tag.
//
// Compiled units themselves are defined by the unitcode subpackage,
// and the closed set of digestible runtime values by the value
// subpackage.
package codedigest // import "github.com/memoflow/codedigest"
