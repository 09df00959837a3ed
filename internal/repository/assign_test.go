package repository

import (
	"fmt"
	"reflect"
)

// assignAny writes value into dest, a pointer obtained via
// reflect.Value.Addr().Interface(), converting between the stored dynamic
// type and the destination's concrete type the way pgx's Scan does. Test
// support only: the fakeAdapter is the sole caller.
func assignAny(dest any, value any) {
	dv := reflect.ValueOf(dest).Elem()
	if value == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return
	}
	vv := reflect.ValueOf(value)
	if vv.Type().AssignableTo(dv.Type()) {
		dv.Set(vv)
		return
	}
	if vv.Type().ConvertibleTo(dv.Type()) {
		dv.Set(vv.Convert(dv.Type()))
		return
	}
	panic(fmt.Sprintf("fakeAdapter: cannot assign %T into %s", value, dv.Type()))
}
