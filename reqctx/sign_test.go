package reqctx

import "testing"

func TestCleanUndefinedStripsNilKeysRecursively(t *testing.T) {
	props := Props{
		"a": "keep",
		"b": nil,
		"nested": Props{
			"c": 1,
			"d": nil,
		},
		"list": []interface{}{1, nil, Props{"e": nil, "f": "g"}},
	}

	cleaned := CleanUndefined(props)

	if _, ok := cleaned["b"]; ok {
		t.Fatalf("expected top-level nil key to be stripped")
	}
	nested, ok := cleaned["nested"].(Props)
	if !ok {
		t.Fatalf("expected nested to remain a Props, got %T", cleaned["nested"])
	}
	if _, ok := nested["d"]; ok {
		t.Fatalf("expected nested nil key to be stripped")
	}
	if nested["c"] != 1 {
		t.Fatalf("expected nested.c to survive, got %v", nested["c"])
	}

	list, ok := cleaned["list"].([]interface{})
	if !ok || len(list) != 3 {
		t.Fatalf("expected list to keep its 3 slots, got %#v", cleaned["list"])
	}
	if list[1] != nil {
		t.Fatalf("expected a nil slice element to stay nil in place, got %v", list[1])
	}
	elem, ok := list[2].(Props)
	if !ok {
		t.Fatalf("expected list[2] to remain a Props, got %T", list[2])
	}
	if _, ok := elem["e"]; ok {
		t.Fatalf("expected nested-in-slice nil key to be stripped")
	}
}

func TestCleanUndefinedNilPropsReturnsEmpty(t *testing.T) {
	cleaned := CleanUndefined(nil)
	if cleaned == nil || len(cleaned) != 0 {
		t.Fatalf("expected an empty, non-nil Props, got %#v", cleaned)
	}
}

func TestSignIsOrderIndependent(t *testing.T) {
	a := Props{"x": 1, "y": "two", "z": true}
	b := Props{"z": true, "y": "two", "x": 1}

	if Sign(a) != Sign(b) {
		t.Fatalf("expected key-order-independent signs to match: %q vs %q", Sign(a), Sign(b))
	}
}

func TestSignDistinguishesNestedStructure(t *testing.T) {
	a := Props{"nested": Props{"k": 1}}
	b := Props{"nested": Props{"k": 2}}

	if Sign(a) == Sign(b) {
		t.Fatalf("expected differing nested values to sign differently")
	}
}

func TestSignIgnoresUndefinedKeysLikeCleanUndefined(t *testing.T) {
	a := Props{"x": 1}
	b := Props{"x": 1, "y": nil}

	if Sign(a) != Sign(b) {
		t.Fatalf("expected a nil-valued key to be irrelevant to the sign")
	}
}

func TestKeyCombinesDisplayNameAndSign(t *testing.T) {
	k1 := Key("modelA", Props{"x": 1})
	k2 := Key("modelB", Props{"x": 1})
	k3 := Key("modelA", Props{"x": 2})

	if k1 == k2 {
		t.Fatalf("expected differing display names to produce differing keys")
	}
	if k1 == k3 {
		t.Fatalf("expected differing props to produce differing keys")
	}
}

