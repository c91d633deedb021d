package pylldb

// decodeSequence implements the PyListObject/PyTupleObject layout: an
// item-array pointer plus a signed size, the item array holding object
// pointers in order.
func decodeSequence(v Value) ([]*Description, bool) {
	size, ok := v.Child("ob_base").Child("ob_size").Signed()
	if !ok {
		size, ok = v.Child("ob_size").Signed()
	}
	if !ok || size < 0 {
		return nil, false
	}

	items := v.Child("ob_item").Elements()
	out := make([]*Description, 0, size)
	for i := int64(0); i < size; i++ {
		itemPtr, ok := items.Index(int(i)).Unsigned()
		if !ok {
			return nil, false
		}
		out = append(out, Describe(v.proc, Addr(itemPtr)))
	}
	return out, true
}
