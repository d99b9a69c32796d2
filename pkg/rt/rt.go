// Package rt is the reference implementation of the Orion runtime the
// generated assembly links against: reference-counted lists, dicts, ranges
// and strings, typed coercions and line input. The semantics here are the
// contract for the C-ABI symbols listed in abi.go; the property tests in
// this package pin down the behavior the compiled runtime object must match.
package rt

import (
	"fmt"
	"os"
)

// Heap object type tags, stored as the first word of every collection
// header so generated code can dispatch without static type information.
const (
	TypeList int64 = 1
	TypeDict int64 = 2
)

// Fatalf reports an unrecoverable runtime error. Runtime errors never
// return control; the default handler writes to stderr and exits with
// status 1. Tests swap it out to capture the message.
var Fatalf = func(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// Collection is any tagged heap object indexable by CollectionGet/Set.
type Collection interface {
	Tag() int64
}

// CollectionGet reads the leading type-tag word and dispatches the
// subscript read to the right container.
func CollectionGet(obj Collection, key int64) int64 {
	if obj == nil {
		Fatalf("Cannot index null collection")
		return 0
	}
	switch obj.Tag() {
	case TypeList:
		return obj.(*List).Get(key)
	case TypeDict:
		return obj.(*Dict).Get(key)
	}
	Fatalf("Cannot index object with unknown type tag %d", obj.Tag())
	return 0
}

// CollectionSet dispatches a subscript write the same way.
func CollectionSet(obj Collection, key, value int64) {
	if obj == nil {
		Fatalf("Cannot index null collection")
		return
	}
	switch obj.Tag() {
	case TypeList:
		obj.(*List).Set(key, value)
	case TypeDict:
		obj.(*Dict).Set(key, value)
	default:
		Fatalf("Cannot index object with unknown type tag %d", obj.Tag())
	}
}

// PrintSmart prints a value whose static type the compiler could not
// determine. It mirrors the pointer-vs-integer heuristic of the compiled
// runtime: heap handles print by content, integers in decimal, booleans as
// True/False, floats with two decimals, anything else in fmt's default form.
// The tagged CollectionGet path is the robust alternative; this survives
// for untyped 'print' arguments only.
func PrintSmart(v interface{}) {
	switch x := v.(type) {
	case *String:
		fmt.Println(x.Data())
	case *List:
		fmt.Println(x.Format())
	case *Dict:
		fmt.Println(x.Format())
	case int64:
		fmt.Println(x)
	case bool:
		if x {
			fmt.Println("True")
		} else {
			fmt.Println("False")
		}
	case float64:
		fmt.Printf("%.2f\n", x)
	default:
		fmt.Println(v)
	}
}

// DetectType names the dynamic type of a value the way the compiled
// runtime's detect_type does.
func DetectType(v interface{}) string {
	switch v.(type) {
	case *String:
		return "datatype: string"
	case *List:
		return "datatype: list"
	case *Dict:
		return "datatype: dict"
	case *Range:
		return "datatype: range"
	case float64:
		return "datatype: float"
	case bool:
		return "datatype: bool"
	}
	return "datatype: int"
}
