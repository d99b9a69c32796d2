package rt

// This file is the C-ABI surface of the runtime object the generated
// assembly links against. The code generator consults it for the extern
// symbol list and for the value kind each call leaves in the return
// register. Names must match the compiled runtime exactly.

// Kind classifies the 64-bit word a runtime call returns or an expression
// produces: a scalar, or a handle to one of the heap object flavors.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindList
	KindDict
	KindRange
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindRange:
		return "range"
	}
	return "unknown"
}

// IsHeap reports whether values of this kind are reference-counted
// handles that need retain/release pairs.
func (k Kind) IsHeap() bool {
	switch k {
	case KindString, KindList, KindDict, KindRange:
		return true
	}
	return false
}

// FuncSig describes one runtime symbol: its unmangled name, argument
// count, and the kind of the value it returns.
type FuncSig struct {
	Name string
	Args int
	Ret  Kind
}

// Funcs lists every symbol the runtime object exports.
var Funcs = []FuncSig{
	// Memory wrappers
	{"orion_malloc", 1, KindInt},
	{"orion_free", 1, KindVoid},
	{"orion_realloc", 2, KindInt},

	// List
	{"list_new", 1, KindList},
	{"list_from_data", 2, KindList},
	{"list_retain", 1, KindList},
	{"list_release", 1, KindVoid},
	{"list_len", 1, KindInt},
	{"list_get", 2, KindInt},
	{"list_set", 3, KindVoid},
	{"list_append", 2, KindVoid},
	{"list_pop", 1, KindInt},
	{"list_insert", 3, KindVoid},
	{"list_concat", 2, KindList},
	{"list_repeat", 2, KindList},
	{"list_extend", 2, KindVoid},
	{"list_print", 1, KindVoid},

	// Dict
	{"dict_new", 1, KindDict},
	{"dict_retain", 1, KindDict},
	{"dict_release", 1, KindVoid},
	{"dict_len", 1, KindInt},
	{"dict_set", 3, KindVoid},
	{"dict_get", 2, KindInt},
	{"dict_get_default", 3, KindInt},
	{"dict_contains", 2, KindBool},
	{"dict_delete", 2, KindVoid},
	{"dict_pop", 2, KindInt},
	{"dict_pop_default", 3, KindInt},
	{"dict_keys", 1, KindList},
	{"dict_values", 1, KindList},
	{"dict_items", 1, KindList},
	{"dict_clear", 1, KindVoid},
	{"dict_update", 2, KindVoid},

	// Range
	{"range_new", 3, KindRange},
	{"range_new_stop", 1, KindRange},
	{"range_new_start_stop", 2, KindRange},
	{"range_len", 1, KindInt},
	{"range_get", 2, KindInt},
	{"range_to_list", 1, KindList},
	{"range_retain", 1, KindRange},
	{"range_release", 1, KindVoid},

	// String
	{"string_new", 1, KindString},
	{"string_retain", 1, KindString},
	{"string_release", 1, KindVoid},
	{"string_get_cstr", 1, KindInt},
	{"string_concat_parts", 2, KindString},
	{"string_hash", 1, KindInt},
	{"int_to_string", 1, KindString},
	{"float_to_string", 1, KindString},
	{"bool_to_string", 1, KindString},
	{"string_to_string", 1, KindString},

	// Coercions
	{"__orion_int_to_string", 1, KindString},
	{"__orion_float_to_string", 1, KindString},
	{"__orion_bool_to_string", 1, KindString},
	{"__orion_float_to_int", 1, KindInt},
	{"__orion_bool_to_int", 1, KindInt},
	{"__orion_string_to_int", 1, KindInt},
	{"__orion_int_to_float", 1, KindFloat},
	{"__orion_bool_to_float", 1, KindFloat},
	{"__orion_string_to_float", 1, KindFloat},

	// I/O
	{"orion_input", 0, KindString},
	{"orion_input_prompt", 1, KindString},

	// Tagged dispatch
	{"collection_get", 2, KindInt},
	{"collection_set", 3, KindVoid},
	{"print_smart", 1, KindVoid},
	{"detect_type", 1, KindString},
}

var funcByName = func() map[string]FuncSig {
	m := make(map[string]FuncSig, len(Funcs))
	for _, f := range Funcs {
		m[f.Name] = f
	}
	return m
}()

// Lookup returns the signature of a runtime symbol by name.
func Lookup(name string) (FuncSig, bool) {
	f, ok := funcByName[name]
	return f, ok
}

// ReleaseFunc maps a heap kind to the runtime symbol that releases it.
func ReleaseFunc(k Kind) string {
	switch k {
	case KindString:
		return "string_release"
	case KindList:
		return "list_release"
	case KindDict:
		return "dict_release"
	case KindRange:
		return "range_release"
	}
	return ""
}

// RetainFunc maps a heap kind to the runtime symbol that retains it.
func RetainFunc(k Kind) string {
	switch k {
	case KindString:
		return "string_retain"
	case KindList:
		return "list_retain"
	case KindDict:
		return "dict_retain"
	case KindRange:
		return "range_retain"
	}
	return ""
}
