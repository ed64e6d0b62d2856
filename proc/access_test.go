package proc

import (
	"testing"

	"github.com/sprocd/sprocd/internal/tassert"
)

func TestCheckAccessOwnerBypassesPerFunctionBits(t *testing.T) {
	// "use" is a role-level gate independent of ownership (spec.md
	// §4.G: "deny if either the use bit remains unsatisfied OR ...");
	// granting it via role is what lets ownership bypass the
	// remaining per-function execute bit below.
	id := Identity{User: "alice", Grants: AccessUse}
	err := checkAccess(id, "alice", "acme.fn", AccessExecute|AccessUse)
	tassert.CheckFatal(t, err)
}

func TestCheckAccessDeniesMissingUseBit(t *testing.T) {
	id := Identity{User: "bob", Grants: AccessExecute}
	err := checkAccess(id, "alice", "acme.fn", AccessExecute|AccessUse)
	tassert.Fatalf(t, err != nil, "expected denial when the use bit is unsatisfied")
}

func TestCheckAccessUniversalShortCircuits(t *testing.T) {
	id := Identity{User: "root", Universal: AccessExecute | AccessUse}
	err := checkAccess(id, "alice", "acme.fn", AccessExecute|AccessUse)
	tassert.CheckFatal(t, err)
}

func TestCheckAccessNonOwnerWithGrantsSucceeds(t *testing.T) {
	id := Identity{User: "bob", Grants: AccessExecute | AccessUse}
	err := checkAccess(id, "alice", "acme.fn", AccessExecute|AccessUse)
	tassert.CheckFatal(t, err)
}

func TestCheckAccessNonOwnerDeniedWhenFunctionGrantsNothingExtra(t *testing.T) {
	// bob's role covers "use" but not "execute"; the function itself
	// (required==0) grants no per-function bits to make up the
	// difference, so a non-owner must be denied.
	id := Identity{User: "bob", Grants: AccessUse}
	err := checkAccess(id, "alice", "acme.fn", 0)
	tassert.Fatalf(t, err != nil, "expected denial when the function's own access bitmap covers none of the caller's missing bits")
}

func TestCheckAccessNonOwnerSucceedsWhenFunctionGrantCoversGap(t *testing.T) {
	// bob's role still lacks "execute", but the function's own access
	// bitmap grants it directly, closing the gap for every caller.
	id := Identity{User: "bob", Grants: AccessUse}
	err := checkAccess(id, "alice", "acme.fn", AccessExecute)
	tassert.CheckFatal(t, err)
}
