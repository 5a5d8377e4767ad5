package schema

import (
	"fmt"
	"strings"
)

// UnsupportedTypeError reports a native type that has no semantic mapping.
// It always names the offending entity and field.
type UnsupportedTypeError struct {
	Entity string
	Field  string
	Native string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("schema: unsupported native type %q for %s.%s", e.Native, e.Entity, e.Field)
}

// nativeTypes maps lower-cased native type names from the supported backends
// onto the semantic enumeration. SQL names cover the MySQL/Postgres/SQLite
// dialects; the remainder are search-index mapping types.
var nativeTypes = map[string]Type{
	// relational
	"char": TypeString, "varchar": TypeString, "tinytext": TypeString,
	"mediumtext": TypeString, "longtext": TypeString, "uuid": TypeString,
	"character varying": TypeString, "character": TypeString,
	"tinyint": TypeInteger, "smallint": TypeInteger, "mediumint": TypeInteger,
	"int": TypeInteger, "bigint": TypeInteger, "serial": TypeInteger,
	"bigserial": TypeInteger, "smallserial": TypeInteger,
	"decimal": TypeFloat, "numeric": TypeFloat, "real": TypeFloat,
	"double precision": TypeFloat,
	"bool":      TypeBoolean,
	"datetime":  TypeDatetime,
	"timestamp": TypeDatetime, "timestamptz": TypeDatetime,
	"timestamp with time zone":    TypeDatetime,
	"timestamp without time zone": TypeDatetime,
	"json": TypeJSON, "jsonb": TypeJSON,

	// search-index mapping types
	"text": TypeString, "keyword": TypeString,
	"long": TypeInteger, "integer": TypeInteger, "short": TypeInteger,
	"byte":  TypeInteger,
	"float": TypeFloat, "double": TypeFloat, "half_float": TypeFloat,
	"scaled_float": TypeFloat,
	"boolean":      TypeBoolean,
	"date":         TypeDatetime, "date_nanos": TypeDatetime,
	"nested": TypeJSON, "object": TypeJSON, "flattened": TypeJSON,
}

// MapNativeType normalizes a backend-reported type name. Size suffixes and
// unsigned markers ("varchar(255)", "int unsigned") are stripped before
// lookup. A type with no mapping yields an *UnsupportedTypeError naming the
// entity and field.
func MapNativeType(entity, field, native string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(native))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.TrimSuffix(name, " unsigned")
	if t, ok := nativeTypes[name]; ok {
		return t, nil
	}
	return "", &UnsupportedTypeError{Entity: entity, Field: field, Native: native}
}
