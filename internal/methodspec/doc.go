// Package methodspec is the front end for building method specifications:
// reusable contracts (argument bindings, assumptions, return binding,
// assertions) that let a symbolic execution backend replace a call with a
// verified summary.
//
// # Handles
//
// MethodSpec and the builder types are opaque, copyable handles. Each wraps
// a Backend and a Token into that backend's registry. Copying a handle never
// copies the backend object; every copy refers to the same state.
//
// # Staged protocol
//
// Stages are encoded as distinct types so that misordered calls do not
// compile:
//
//	b := methodspec.New()                  // Builder
//	b = methodspec.AddArg(b, &x)           // Builder, zero or more times
//	a := b.GatherAssumes()                 // AssumesBuilder
//	r := methodspec.SetReturn(a, &result)  // ReturnBuilder
//	s := r.GatherAsserts()                 // AssertsBuilder
//	spec := s.Finish()                     // MethodSpec
//
// Every call returns the next value; the argument is consumed and must not
// be reused. Reuse is a contract violation the front end does not detect.
// Backends may report it through their own diagnostics.
//
// None of the operations return errors. Backend failures surface through
// the backend's own error channel.
//
// # Detached operation
//
// Without a backend (the zero value of any handle, or the Detached backend)
// every stage is an identity step and PrettyPrint returns UnknownSpecText.
// This is the intended behavior, not a missing implementation: real
// content only exists inside a backend.
//
// Dynamic offers the same protocol with a runtime stage check for drivers
// that read their steps from data.
package methodspec
