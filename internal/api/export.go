package api

import (
	"fmt"
	"strings"

	"mediframework/pkg"
)

// RenderNotes formats an encounter's clinical notes as plain text for
// download. Empty categories are omitted.
func RenderNotes(enc *pkg.Encounter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Advanced Medical Interface System - Clinical Notes (Encounter: %s):\n\n", enc.Name)

	sections := []struct {
		title string
		items []string
	}{
		{"Red Flags", enc.Notes.RedFlags},
		{"Symptoms", enc.Notes.Symptoms},
		{"Diagnoses", enc.Notes.Diagnoses},
		{"Medications", enc.Notes.Medications},
		{"Follow-up Actions", enc.Notes.FollowUp},
		{"Patient Education", enc.Notes.PatientEducation},
	}

	wrote := false
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		wrote = true
		b.WriteString(strings.ToUpper(sec.title))
		b.WriteString(":\n")
		for _, item := range sec.items {
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if !wrote {
		b.WriteString("No notes available to export for this encounter.")
	}
	return b.String()
}
