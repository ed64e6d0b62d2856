package proc

import (
	"testing"

	"github.com/sprocd/sprocd/core"
	"github.com/sprocd/sprocd/dispatch"
	"github.com/sprocd/sprocd/internal/tassert"
)

func TestFunctionCallDeniesUnauthorizedCaller(t *testing.T) {
	var called bool
	backing := NewBuiltinBacking(func(*core.Task, dispatch.ArgsPort, *dispatch.Port) error {
		called = true
		return nil
	})
	f := NewFunction(Definition{
		Name:   "acme.fn",
		Owner:  "alice",
		Access: AccessExecute | AccessUse,
	}, nil, nil, func() (Backing, error) { return backing, nil })

	task := core.NewTask("t1")
	err := f.Call(task, Identity{User: "bob"}, dispatch.NewPort(), dispatch.NewPort())

	tassert.Fatalf(t, err != nil, "expected access denial for an unauthorized caller")
	tassert.Fatalf(t, !called, "backing must not run when access is denied")
	tassert.Fatalf(t, task.LastErr() == err, "expected the denial to land in the task's diagnostic slot")
}

func TestFunctionCallDispatchesOnAuthorizedCaller(t *testing.T) {
	var called bool
	backing := NewBuiltinBacking(func(*core.Task, dispatch.ArgsPort, *dispatch.Port) error {
		called = true
		return nil
	})
	f := NewFunction(Definition{
		Name:   "acme.fn",
		Owner:  "alice",
		Access: AccessExecute | AccessUse,
	}, nil, nil, func() (Backing, error) { return backing, nil })

	task := core.NewTask("t1")
	// "use" is a role-level gate independent of ownership; granting it
	// here is what lets the owner match below bypass the per-function
	// execute bit (proc/access_test.go documents the same split).
	id := Identity{User: "alice", Grants: AccessUse}
	err := f.Call(task, id, dispatch.NewPort(), dispatch.NewPort())

	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, called, "expected the backing to run for an authorized caller")
	tassert.Fatalf(t, task.LastErr() == nil, "expected no diagnostic for a successful call")
}

func TestFunctionCallSwapsEffectiveIdentityForSetuidDuration(t *testing.T) {
	users := NewMemUserStore()
	users.Add("owner-user", AccessExecute|AccessUse, 0)
	creds := newCredCache([]byte("test-key"))

	var insideEffective string
	backing := NewBuiltinBacking(func(t *core.Task, _ dispatch.ArgsPort, _ *dispatch.Port) error {
		insideEffective = t.EffectiveUser
		return nil
	})
	f := NewFunction(Definition{
		Name:   "acme.fn",
		Owner:  "owner-user",
		Setuid: true,
		Access: AccessExecute | AccessUse,
	}, creds, users, func() (Backing, error) { return backing, nil })

	task := core.NewTask("t1")
	err := f.Call(task, Identity{User: "caller-user", Grants: AccessUse}, dispatch.NewPort(), dispatch.NewPort())
	tassert.CheckFatal(t, err)

	tassert.Fatalf(t, insideEffective == "owner-user",
		"expected the entry point to observe the owner as effective user during a setuid call, got %q", insideEffective)
	tassert.Fatalf(t, task.EffectiveUser == "caller-user",
		"expected effective identity restored to the caller after return, got %q", task.EffectiveUser)

	raw, err := creds.materialize("owner-user")
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, raw != "", "expected a materialized credential to already be cached for the owner")
}

func TestFunctionCallDeniesSetuidForUnknownOwner(t *testing.T) {
	users := NewMemUserStore() // "alice" never added
	creds := newCredCache([]byte("test-key"))

	backing := NewBuiltinBacking(func(*core.Task, dispatch.ArgsPort, *dispatch.Port) error { return nil })
	f := NewFunction(Definition{
		Name:   "acme.fn",
		Owner:  "alice",
		Setuid: true,
		Access: AccessExecute | AccessUse,
	}, creds, users, func() (Backing, error) { return backing, nil })

	task := core.NewTask("t1")
	err := f.Call(task, Identity{User: "alice", Grants: AccessUse}, dispatch.NewPort(), dispatch.NewPort())
	tassert.Fatalf(t, err != nil, "expected denial when the setuid owner is unknown to the user store")
}

func TestFunctionCloseReleasesBackingAndDropsCredentials(t *testing.T) {
	creds := newCredCache([]byte("test-key"))
	var released bool
	backing := &releaseTrackingBacking{onRelease: func() { released = true }}
	f := NewFunction(Definition{
		Name:   "acme.fn",
		Owner:  "alice",
		Setuid: true,
	}, creds, NewMemUserStore(), func() (Backing, error) { return backing, nil })

	_, err := f.ensureBacking()
	tassert.CheckFatal(t, err)
	creds.materialize("alice")

	f.Close()

	tassert.Fatalf(t, released, "expected Close to release the backing")
	_, cached := creds.tokens["alice"]
	tassert.Fatalf(t, !cached, "expected Close to drop the owner's cached credential")
}

type releaseTrackingBacking struct {
	onRelease func()
}

func (b *releaseTrackingBacking) Language() Language { return LangBuiltin }
func (b *releaseTrackingBacking) Call(*core.Task, dispatch.ArgsPort, *dispatch.Port) error {
	return nil
}
func (b *releaseTrackingBacking) Release() { b.onRelease() }
