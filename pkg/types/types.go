// Package types defines the Orion type descriptors attached to declarations
// by the parser.
package types

import "github.com/orion-lang/orion/pkg/token"

type Kind int

const (
	Unknown Kind = iota
	Int32
	Int64
	Float32
	Float64
	String
	Bool
	Void
	Struct
)

// Type is a tagged descriptor. Name is set only for Struct (the struct or
// enum name); Unknown marks implicit, unannotated declarations.
type Type struct {
	Kind Kind
	Name string
}

var (
	TypeUnknown = Type{Kind: Unknown}
	TypeInt32   = Type{Kind: Int32}
	TypeInt64   = Type{Kind: Int64}
	TypeFloat32 = Type{Kind: Float32}
	TypeFloat64 = Type{Kind: Float64}
	TypeString  = Type{Kind: String}
	TypeBool    = Type{Kind: Bool}
	TypeVoid    = Type{Kind: Void}
)

// Named returns a struct/enum type descriptor for a user-defined name.
func Named(name string) Type {
	return Type{Kind: Struct, Name: name}
}

// FromToken maps a type-keyword token to its descriptor. The second result
// is false when the token does not name a builtin type.
func FromToken(t token.Type) (Type, bool) {
	switch t {
	case token.IntType:
		return TypeInt32, true
	case token.Int64Type:
		return TypeInt64, true
	case token.Float32Type:
		return TypeFloat32, true
	case token.Float64Type:
		return TypeFloat64, true
	case token.StringType:
		return TypeString, true
	case token.BoolType:
		return TypeBool, true
	case token.VoidType:
		return TypeVoid, true
	}
	return TypeUnknown, false
}

// IsFloat reports whether the type is one of the floating-point kinds.
func (t Type) IsFloat() bool {
	return t.Kind == Float32 || t.Kind == Float64
}

// IsInteger reports whether the type is one of the integer kinds.
func (t Type) IsInteger() bool {
	return t.Kind == Int32 || t.Kind == Int64
}

func (t Type) String() string {
	switch t.Kind {
	case Int32:
		return "int"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Void:
		return "void"
	case Struct:
		return t.Name
	}
	return "unknown"
}
