package core

import "strings"

// FilterPatients returns the patients whose name, contact or id contains
// query, case-insensitively. A blank query returns patients unchanged; the
// result otherwise keeps the input order.
func FilterPatients(patients []Patient, query string) []Patient {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return patients
	}
	out := make([]Patient, 0, len(patients))
	for _, p := range patients {
		if matches(p, term) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p Patient, term string) bool {
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Contact), term) ||
		strings.Contains(strings.ToLower(p.ID), term)
}
