// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire defines the primitive ember chain types.

The types in this package carry no validation logic of their own beyond
deterministic hashing.  Consensus rules live in the blockchain package and
admission policy lives in the mempool package; both operate over these
types.
*/
package wire
