package convention

// Override records a body value that was replaced by a path value.
type Override struct {
	Field     string
	Param     string
	BodyValue any
	PathValue string
}

// Bind applies the model to a decoded request body and the matched path
// values. It returns a new map: excluded fields are dropped and every path
// parameter is written over whatever the body carried for the same field,
// under either the field name or the parameter name. The input is not
// modified.
func (m *RequestModel) Bind(body map[string]any, path map[string]string) (map[string]any, []Override) {
	out := make(map[string]any, len(body)+len(m.PathParams))
	if !m.PathOnly {
		for k, v := range body {
			if m.Excludes(k) {
				continue
			}
			out[k] = v
		}
	}

	var overrides []Override
	for _, p := range m.PathParams {
		val, ok := path[p.Name]
		if !ok || val == "" {
			continue
		}
		for _, name := range []string{p.Field, p.Name} {
			if prev, had := out[name]; had {
				if s, isStr := prev.(string); !isStr || s != val {
					overrides = append(overrides, Override{
						Field:     p.Field,
						Param:     p.Name,
						BodyValue: prev,
						PathValue: val,
					})
				}
				delete(out, name)
			}
		}
		out[p.Field] = val
	}
	return out, overrides
}
