package methodspec

// Builder is a specification in its argument-binding stage.
type Builder struct {
	h handle
}

// AssumesBuilder is a specification whose assumptions have been gathered.
type AssumesBuilder struct {
	h handle
}

// ReturnBuilder is a specification whose return value has been bound.
type ReturnBuilder struct {
	h handle
}

// AssertsBuilder is a specification whose assertions have been gathered.
type AssertsBuilder struct {
	h handle
}

// New creates a builder on the Default backend.
func New() Builder {
	return NewWith(Default())
}

// NewWith creates a builder on b. A nil b means Detached.
func NewWith(b Backend) Builder {
	if b == nil {
		b = Detached{}
	}
	return Builder{h: handle{backend: b, token: b.NewBuilder()}}
}

// Attach wraps a token that b's NewBuilder, or an equivalent constructor
// of b, already issued. Backends use it to hand out builders created
// under their own locking. A nil b means Detached.
func Attach(b Backend, tok Token) Builder {
	if b == nil {
		b = Detached{}
	}
	return Builder{h: handle{backend: b, token: tok}}
}

// AddArg binds the next argument slot to a placeholder for *x. The value
// is not retained beyond the backend's association.
func AddArg[T any](b Builder, x *T) Builder {
	return addArg(b, x)
}

func addArg(b Builder, ref any) Builder {
	be := b.h.be()
	return Builder{h: handle{backend: b.h.backend, token: be.AddArg(b.h.token, ref)}}
}

// GatherAssumes closes argument binding and collects the assumptions
// accumulated so far.
func (b Builder) GatherAssumes() AssumesBuilder {
	be := b.h.be()
	return AssumesBuilder{h: handle{backend: b.h.backend, token: be.GatherAssumes(b.h.token)}}
}

// SetReturn binds the return value to a placeholder for *x.
func SetReturn[T any](b AssumesBuilder, x *T) ReturnBuilder {
	return setReturn(b, x)
}

func setReturn(b AssumesBuilder, ref any) ReturnBuilder {
	be := b.h.be()
	return ReturnBuilder{h: handle{backend: b.h.backend, token: be.SetReturn(b.h.token, ref)}}
}

// GatherAsserts closes return binding and collects the assertions
// accumulated so far.
func (b ReturnBuilder) GatherAsserts() AssertsBuilder {
	be := b.h.be()
	return AssertsBuilder{h: handle{backend: b.h.backend, token: be.GatherAsserts(b.h.token)}}
}

// Finish consumes the builder and returns the finished spec.
func (b AssertsBuilder) Finish() MethodSpec {
	be := b.h.be()
	return MethodSpec{h: handle{backend: b.h.backend, token: be.Finish(b.h.token)}}
}
