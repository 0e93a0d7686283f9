// Package io reads and writes scheduling graphs and results.
//
// # Graph Files
//
// A graph file is the [shift.Doc] of a graph encoded as JSON or YAML. Ops
// and allocs are identified by dense addresses; every op lists its
// successors, the allocs it uses and, when linked, the op that must run
// immediately after it:
//
//	ops:
//	  - address: 0
//	    name: load
//	    outs: [1]
//	    allocs: [0]
//	    fwdLink: 1
//	  - address: 1
//	    name: store
//	    outs: []
//	    allocs: [0]
//	allocs:
//	  - address: 0
//	    weight: [4]
//
// A weight is either one number, the scalar cost, or one number per
// component of [shift.Weight]. Records may appear in any order. "ins" lists
// are optional; when present they must agree with the "outs" of other ops.
//
// # Import
//
// [ImportGraph] detects the format from the file extension (.json, .yaml,
// .yml). [ReadGraph] decodes from any io.Reader. Unknown fields are
// rejected, so a misspelled key is reported instead of silently dropped.
//
// # Export
//
// [ExportGraph] and [WriteGraph] produce files that [ImportGraph] reads back
// into an equal graph. [WriteResult] encodes a [shift.Result] as JSON and
// [WriteOrder] prints a schedule one op per line.
//
// # Orders
//
// [ReadOrder] and [ImportOrder] read a schedule back, either from a result
// file or from the text of [WriteOrder], so an order computed once can be
// checked or drawn later.
package io
