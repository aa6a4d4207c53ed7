package refs

import "reflect"

// Invoker is the capability an annotation wraps: call with an argument, get a
// result.
type Invoker[A, R any] interface {
	Invoke(A) R
}

// Func adapts a plain function into a pass-through Invoker.
type Func[A, R any] func(A) R

func (f Func[A, R]) Invoke(arg A) R {
	return f(arg)
}

// recorder is the recording decorator around an Invoker.
type recorder[A, R any] struct {
	tracker *Tracker
	inner   Invoker[A, R]
	site    Location
	markers []*Marker
}

func (r *recorder[A, R]) Invoke(arg A) R {
	Touch(r.tracker, r.site, r.markers...)
	return r.inner.Invoke(arg)
}

func (r *recorder[A, R]) location() Location {
	return r.site
}

type located interface {
	location() Location
}

// Annotate decorates inner so that every call records markers, in order,
// while t has tracking enabled. The location is that of the function behind
// inner, resolved once here.
func Annotate[A, R any](t *Tracker, inner Invoker[A, R], markers ...*Marker) Invoker[A, R] {
	return AnnotateAt(t, locate(inner), inner, markers...)
}

// AnnotateAt is Annotate with an explicit location.
func AnnotateAt[A, R any](t *Tracker, site Location, inner Invoker[A, R], markers ...*Marker) Invoker[A, R] {
	return &recorder[A, R]{tracker: t, inner: inner, site: site, markers: markers}
}

// Wrap annotates fn and returns it as a plain function with the same
// signature and behavior.
func Wrap[A, R any](t *Tracker, fn func(A) R, markers ...*Marker) func(A) R {
	return Annotate[A, R](t, Func[A, R](fn), markers...).Invoke
}

// Wrap0 is Wrap for functions without arguments.
func Wrap0[R any](t *Tracker, fn func() R, markers ...*Marker) func() R {
	inner := Func[struct{}, R](func(struct{}) R { return fn() })
	rec := AnnotateAt[struct{}, R](t, funcLocation(fn), inner, markers...)
	return func() R { return rec.Invoke(struct{}{}) }
}

func locate[A, R any](inner Invoker[A, R]) Location {
	switch v := inner.(type) {
	case located:
		return v.location()
	case Func[A, R]:
		return funcLocation(v)
	}
	return funcLocation(inner)
}

func funcLocation(fn any) Location {
	if fn == nil {
		return Location{}
	}
	value := reflect.ValueOf(fn)
	if value.Kind() == reflect.Func {
		if value.IsNil() {
			return Location{}
		}
		loc, _ := FuncLocation(value.Pointer())
		return loc
	}
	if method, ok := reflect.TypeOf(fn).MethodByName("Invoke"); ok {
		loc, _ := FuncLocation(method.Func.Pointer())
		return loc
	}
	return Location{}
}
