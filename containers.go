package pylldb

// recognizeContainer recognises well-known high-level container classes:
// type names outside the primitive set are checked against a
// small number of well-known wrapper classes by walking the object's
// instance dictionary for a marker attribute (default_factory for
// defaultdict, data for the Python-level User* wrappers). OrderedDict and
// Counter need no marker lookup: both are dict subclasses that keep
// PyDictObject's layout, so a type-name match is enough.
func recognizeContainer(proc Process, addr Addr, typeName string) (Decoded, bool) {
	switch lastDotted(typeName) {
	case "OrderedDict":
		return decodeDictLikeContainer(proc, addr, ContainerOrderedDict)
	case "Counter":
		return decodeDictLikeContainer(proc, addr, ContainerCounter)
	case "defaultdict":
		dec, ok := decodeDictLikeContainer(proc, addr, ContainerDefaultdict)
		if !ok {
			return Decoded{}, false
		}
		if inst, ok := instanceDict(proc, addr, typeName); ok {
			if factory, ok := inst.GetStr("default_factory"); ok {
				dec.DefaultFactory = factory
			}
		}
		return dec, true
	case "UserDict", "UserList", "UserString":
		inst, ok := instanceDict(proc, addr, typeName)
		if !ok {
			return Decoded{}, false
		}
		data, ok := inst.GetStr("data")
		if !ok {
			return Decoded{}, false
		}
		dec := data.Decoded
		dec.Container = Container(lastDotted(typeName))
		return dec, true
	}
	return Decoded{}, false
}

func decodeDictLikeContainer(proc Process, addr Addr, c Container) (Decoded, bool) {
	t, ok := proc.TypeByName("PyDictObject")
	if !ok {
		return Decoded{}, false
	}
	dict, ok := decodeDict(NewValue(proc, addr, t))
	if !ok {
		return Decoded{}, false
	}
	return Decoded{Kind: KindDict, Dict: dict, Container: c}, true
}

// instanceDict decodes the dictionary reachable through a type's
// per-instance "__dict__" slot.
func instanceDict(proc Process, addr Addr, typeName string) (*Dict, bool) {
	t, ok := proc.TypeByName(typeName)
	if !ok {
		return nil, false
	}
	dictPtr := NewValue(proc, addr, t).Child("__dict__").Deref()
	if !dictPtr.Valid() {
		return nil, false
	}
	dictType, ok := proc.TypeByName("PyDictObject")
	if !ok {
		return nil, false
	}
	return decodeDict(dictPtr.Cast(dictType))
}

func lastDotted(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
	}
	return s
}
