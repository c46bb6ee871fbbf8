package vdf

// Alt is one segment of a lookup path: a set of acceptable key names
// tried in order, first match wins. Most segments have a single name;
// use Any for keys whose spelling varies between files.
type Alt []string

// Key makes a single-name path segment.
func Key(name string) Alt {
	return Alt{name}
}

// Any makes a path segment matching the first present of several names.
func Any(names ...string) Alt {
	return Alt(names)
}

// GetPath walks nested Maps along path and returns the value at the end.
// It returns false if any segment is missing or a scalar is reached
// before the last segment.
//
// This is the one query primitive consumers outside the codec need:
//
//	launch, ok := vdf.GetPath(tree, vdf.Key("appinfo"), vdf.Key("config"), vdf.Key("launch"))
func GetPath(m *Map, path ...Alt) (*Value, bool) {
	if len(path) == 0 {
		return FromMap(m), m != nil
	}
	cur := m
	for i, seg := range path {
		var v *Value
		found := false
		for _, name := range seg {
			if got, ok := cur.Get(name); ok {
				v, found = got, true
				break
			}
		}
		if !found {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		sub, err := v.AsMap()
		if err != nil {
			return nil, false
		}
		cur = sub
	}
	return nil, false
}

// GetPathString returns the scalar at path coerced to text, or def if
// the path is missing or ends on a Map.
func GetPathString(m *Map, def string, path ...Alt) string {
	v, ok := GetPath(m, path...)
	if !ok || v.IsMap() {
		return def
	}
	return v.Text()
}
