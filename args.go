package performs

// Args forwards positional and keyword arguments for methods that take
// them dynamically. Any type the job type's codec can encode works as
// the argument type; Args is the ready-made one.
type Args struct {
	Positional []any          `json:"positional,omitempty" msgpack:"positional,omitempty"`
	Keyword    map[string]any `json:"keyword,omitempty" msgpack:"keyword,omitempty"`
}

// Kw returns Args with keyword arguments built from key/value pairs.
// A trailing key without a value is ignored.
func Kw(pairs ...any) Args {
	a := Args{Keyword: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			continue
		}
		a.Keyword[k] = pairs[i+1]
	}
	return a
}

// Get returns a keyword argument.
func (a Args) Get(key string) (any, bool) {
	v, ok := a.Keyword[key]
	return v, ok
}

// GetString returns a keyword argument as a string, or "".
func (a Args) GetString(key string) string {
	s, _ := a.Keyword[key].(string)
	return s
}
