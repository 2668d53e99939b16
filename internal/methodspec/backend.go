package methodspec

import "sync/atomic"

// Token identifies an object in a backend's registry. The front end never
// interprets it.
type Token uint64

// Backend owns builder and spec objects and implements each protocol step.
// Every method is total: failures are reported through the backend's own
// channel, never to the caller of the protocol.
//
// Implementations should be comparable, usually pointers, so that
// MethodSpec.Resolve can recognize their handles. Resolve never matches a
// backend whose value is not comparable.
type Backend interface {
	// NewBuilder creates a builder object ready to accept arguments.
	NewBuilder() Token

	// AddArg binds the next argument slot of builder to a placeholder
	// associated with ref, a pointer to the caller's value.
	AddArg(builder Token, ref any) Token

	// GatherAssumes snapshots the pending assumptions into builder.
	GatherAssumes(builder Token) Token

	// SetReturn binds the return value to a placeholder associated with ref.
	SetReturn(builder Token, ref any) Token

	// GatherAsserts snapshots the pending assertions into builder.
	GatherAsserts(builder Token) Token

	// Finish freezes builder into a spec object.
	Finish(builder Token) Token

	// PrettyPrint renders a spec object.
	PrettyPrint(spec Token) string
}

// UnknownSpecText is what PrettyPrint returns when no backend content is
// available.
const UnknownSpecText = "(unknown MethodSpec)"

// Detached is the no-op backend: every step returns its input token and
// PrettyPrint returns UnknownSpecText.
type Detached struct{}

var _ Backend = Detached{}

func (Detached) NewBuilder() Token              { return 0 }
func (Detached) AddArg(b Token, _ any) Token    { return b }
func (Detached) GatherAssumes(b Token) Token    { return b }
func (Detached) SetReturn(b Token, _ any) Token { return b }
func (Detached) GatherAsserts(b Token) Token    { return b }
func (Detached) Finish(b Token) Token           { return b }
func (Detached) PrettyPrint(Token) string       { return UnknownSpecText }

type backendBox struct{ b Backend }

var defaultBackend atomic.Pointer[backendBox]

// Default returns the backend New uses. It is Detached unless SetDefault
// installed another.
func Default() Backend {
	if box := defaultBackend.Load(); box != nil {
		return box.b
	}
	return Detached{}
}

// SetDefault installs the backend New uses and returns the previous one.
// Passing nil restores Detached.
func SetDefault(b Backend) Backend {
	prev := Default()
	if b == nil {
		defaultBackend.Store(nil)
		return prev
	}
	defaultBackend.Store(&backendBox{b: b})
	return prev
}
