package features

// UnknownCode is the sentinel for values not seen during Fit.
// Inference-time circuits and compounds routinely fall outside the
// training vocabulary; that is a degraded input, not an error.
const UnknownCode = -1

// CategoryEncoder maps categorical values to stable integer codes.
// Codes are stable within one fitted instance; calling Fit again
// produces a fresh, independent mapping and invalidates old codes.
type CategoryEncoder struct {
	mapping map[string]int
}

// NewCategoryEncoder creates an unfitted encoder
func NewCategoryEncoder() *CategoryEncoder {
	return &CategoryEncoder{mapping: make(map[string]int)}
}

// Fit assigns codes in first-seen order and returns the mapping
func (e *CategoryEncoder) Fit(values []string) map[string]int {
	e.mapping = make(map[string]int, len(values))
	next := 0
	for _, v := range values {
		if _, ok := e.mapping[v]; !ok {
			e.mapping[v] = next
			next++
		}
	}
	return e.Mapping()
}

// Transform returns the fitted code for a value, or UnknownCode for
// values never seen during Fit. It never fails.
func (e *CategoryEncoder) Transform(value string) int {
	if code, ok := e.mapping[value]; ok {
		return code
	}
	return UnknownCode
}

// Mapping returns a copy of the fitted mapping
func (e *CategoryEncoder) Mapping() map[string]int {
	out := make(map[string]int, len(e.mapping))
	for k, v := range e.mapping {
		out[k] = v
	}
	return out
}

// Restore loads a previously fitted mapping, as round-tripped through
// a model artifact.
func (e *CategoryEncoder) Restore(mapping map[string]int) {
	e.mapping = make(map[string]int, len(mapping))
	for k, v := range mapping {
		e.mapping[k] = v
	}
}
