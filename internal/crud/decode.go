package crud

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/google/uuid"
)

var uuidType = reflect.TypeOf(uuid.UUID{})

// decodeID converts a path segment into idType, supporting the id types
// spec.md §4.7 names explicitly (64-bit integer, 32-bit integer, string)
// plus uuid.UUID, which the teacher's domain types use for every primary
// key (internal/domain/user.go's ID field) and so is a near-certain
// repository id type in practice even though the distilled spec's id-type
// enumeration predates it.
func decodeID(raw string, idType reflect.Type) (reflect.Value, error) {
	switch {
	case idType == uuidType:
		id, err := uuid.Parse(raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("crud: invalid id %q: %w", raw, err)
		}
		return reflect.ValueOf(id), nil
	case idType.Kind() == reflect.String:
		return reflect.ValueOf(raw).Convert(idType), nil
	case idType.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("crud: invalid id %q: %w", raw, err)
		}
		return reflect.ValueOf(n).Convert(idType), nil
	case idType.Kind() == reflect.Int32 || idType.Kind() == reflect.Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("crud: invalid id %q: %w", raw, err)
		}
		return reflect.ValueOf(n).Convert(idType), nil
	default:
		return reflect.Value{}, fmt.Errorf("crud: unsupported id type %s", idType)
	}
}
