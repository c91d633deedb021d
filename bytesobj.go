package pylldb

// decodeBytes implements the PyBytesObject layout: a size field
// and an inline character buffer whose address equals the load address of
// the buffer field itself (the bytes are stored immediately after the
// object header, the same trick PyASCIIObject uses for strings).
func decodeBytes(v Value) ([]byte, bool) {
	size, ok := v.Child("ob_base").Child("ob_size").Unsigned()
	if !ok {
		size, ok = v.Child("ob_size").Unsigned()
	}
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}

	buf := v.Child("ob_sval")
	b, ok := buf.proc.ReadBytes(buf.LoadAddress(), int(size))
	if !ok {
		return nil, false
	}
	return b, true
}
