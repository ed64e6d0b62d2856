// Package proc implements the function object layer (spec.md §3 "F",
// §4.G): a named, privileged view over a module.Symbol that gates
// execution by access check and flips effective identity for setuid
// calls. Grounded on the teacher's ownership/access conventions in
// cmn/api.go (bucket-level ACL bit checks) adapted to a per-function
// role bitmap.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package proc

import "github.com/sprocd/sprocd/cmn/cos"

// Access is the per-role rights bitmap spec.md §4.G reasons about:
// execute, use, and the per-caller "universal" override.
type Access uint32

const (
	AccessExecute Access = 1 << iota
	AccessUse
	AccessUniversal
)

// Identity is the effective caller used for an access check — either
// the invoking user or, mid-call, a setuid function's owner.
type Identity struct {
	User      string
	Grants    Access // role_grant_on_class(function) folded in by the caller
	Universal Access // caller.universal
}

// checkAccess implements spec.md §4.G step 1. owner is the function's
// owner user id; required is the function's own per-function access
// bitmap (def.Access); fnName names the function for the denial
// diagnostic.
func checkAccess(id Identity, owner, fnName string, required Access) error {
	if id.Universal&(AccessExecute|AccessUse) == AccessExecute|AccessUse {
		return nil
	}
	need := (AccessExecute | AccessUse) &^ id.Grants &^ id.Universal
	if need&AccessUse != 0 {
		return accessDenied(id.User, fnName)
	}
	if id.User != owner && need&^required != 0 {
		return accessDenied(id.User, fnName)
	}
	return nil
}

func accessDenied(user, fnName string) error {
	return cos.NewAccessDenied(user, fnName)
}
