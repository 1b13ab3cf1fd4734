package triage

// Missing lists the required fields r does not fill, in required order.
func Missing(r Record, required []string) []string {
	out := make([]string, 0, len(required))
	for _, f := range required {
		if !r.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
