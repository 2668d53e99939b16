package methodspec

import "reflect"

// handle is the shared payload of every handle type. The zero value refers
// to no backend and behaves as Detached.
type handle struct {
	backend Backend
	token   Token
}

func (h handle) be() Backend {
	if h.backend == nil {
		return Detached{}
	}
	return h.backend
}

// MethodSpec is an opaque reference to a finished specification owned by a
// backend. Only AssertsBuilder.Finish produces one.
type MethodSpec struct {
	h handle
}

// PrettyPrint renders ms for diagnostics. It never fails; without a
// backend it returns UnknownSpecText.
func PrettyPrint(ms MethodSpec) string {
	return ms.h.be().PrettyPrint(ms.h.token)
}

// String implements fmt.Stringer.
func (ms MethodSpec) String() string {
	return PrettyPrint(ms)
}

// Resolve returns the token of ms if it was produced by b. Backends use it
// to look up their own objects; ok is false for handles of other backends
// and for backends whose values cannot be compared.
func (ms MethodSpec) Resolve(b Backend) (tok Token, ok bool) {
	if !sameBackend(ms.h.backend, b) {
		return 0, false
	}
	return ms.h.token, true
}

// sameBackend compares without the panic == raises on incomparable
// dynamic values.
func sameBackend(x, y Backend) bool {
	if x == nil || y == nil || reflect.TypeOf(x) != reflect.TypeOf(y) {
		return false
	}
	if !reflect.ValueOf(x).Comparable() || !reflect.ValueOf(y).Comparable() {
		return false
	}
	return x == y
}
