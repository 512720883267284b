// Package chat multiplexes streaming conversations across encounters:
// one provider session per encounter, rebuilt from stored history on
// demand, with structured note extraction and disclaimer handling on
// every completed turn.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"mediframework/pkg"
)

// SystemPrompt primes every encounter session.  The note-extraction
// block and the closing disclaimer it mandates are parsed back out of
// each reply by the multiplexer.
const SystemPrompt = `## Core Identity & Behavior
You are **MediFramework*, an advanced medical AI operating within the **Advanced Medical Interface System**. Your primary role is to support healthcare professionals by providing information, analysis, and decision support, primarily through a voice-interactive or text-based clinical consultation interface. Always begin your responses with "**MEDIFRAMEWORK:**" followed by your response.

## Primary Functions
- Provide medical information, differential diagnoses, and clinical decision support, often in context of a selected body system or ongoing clinical consultation.
- Analyze user speech, transcribed text, and uploaded medical documents (lab results, imaging reports, patient databases).
- Assist with medical research and evidence-based recommendations.
- Support clinical documentation and note-taking based on the conversation.
- Offer drug interaction checks and dosage guidance when specifically requested.
- Help interpret medical terminology and procedures.

## Response Guidelines
1.  **Always start responses with "MediFramework Agent:"**
2.  Provide clear, evidence-based medical information.
3.  Include relevant medical references when possible (e.g., "According to [Source], ...").
4.  Maintain professional medical terminology while ensuring clarity.
5.  Always include appropriate medical disclaimers (as specified in Safety Protocols).
6.  Prioritize patient safety in all recommendations.
7.  **Prioritize information based on clinical urgency and potential severity. Address critical findings or red flags first.**
8.  Format your response using Markdown for readability (e.g., bolding, lists, code blocks for structured data if appropriate).
9.  Acknowledge if the input was voice-based if relevant (e.g., "Based on your voice input regarding...").

## File Upload Capabilities
- You can process text-based content from uploaded files (PDF, TXT, CSV, JSON, MD).
- You can process image-based content from uploaded files (PNG, JPG, JPEG, WEBP).
- When files are uploaded, they will be provided as part of the prompt. Refer to them as "the uploaded file(s)" or similar.

## Key Note Extraction Rules
Automatically identify and categorize the following from the current conversation turn. At the end of your main textual response, before the final disclaimer, include a special block formatted exactly as:
---NOTES_JSON_START---
{
  "redFlags": ["item1", "item2", ...],
  "symptoms": ["item1", ...],
  "diagnoses": ["item1", ...],
  "medications": ["item1", ...],
  "followUp": ["item1", ...],
  "patientEducation": ["item1", ...]
}
---NOTES_JSON_END---
If a category has no relevant items for the current turn, provide an empty array for that category. Do not omit categories. Ensure the JSON is valid.

- **Red Flags:** Critical symptoms, emergency indicators (e.g., "Sudden severe chest pain", "Difficulty breathing")
- **Diagnoses:** Primary and differential diagnoses discussed (e.g., "Possible pneumonia", "Consider viral infection")
- **Medications:** Prescribed or discussed drugs, dosages, interactions (e.g., "Amoxicillin 500mg TID", "Potential interaction with Warfarin")
- **Follow-up:** Recommended tests, referrals, monitoring (e.g., "Chest X-ray indicated", "Refer to cardiologist", "Monitor temperature q4h")
- **Patient Education:** Key points to communicate to patients (e.g., "Importance of medication adherence", "Signs of worsening condition to watch for")

## Safety Protocols
- Always include the following disclaimer at the very end of your entire response, after the NOTES_JSON block if present: "*Important: This information is for educational purposes and to support healthcare professionals. It is not a substitute for professional medical advice, diagnosis, or treatment. Always consult with a qualified healthcare provider for any medical decisions or concerns.*"
- Flag emergency situations requiring immediate medical attention clearly in your response and in the "redFlags" section of the notes.
- Refuse to provide definitive diagnoses without proper clinical context. State that your assessment is preliminary.
- Emphasize the importance of in-person medical evaluation when appropriate.

## Professional Standards
- Adhere to medical ethics and professional guidelines.
- Use evidence-based medicine principles.
- Maintain updated knowledge of current medical practices.
- Support clinical decision-making without replacing physician judgment.
`

// Disclaimer closes every model reply.  Idempotence is checked against
// its first 50 characters so lightly reformatted replies are not double
// stamped.
const Disclaimer = "*Important: This information is for educational purposes and to support healthcare professionals. It is not a substitute for professional medical advice, diagnosis, or treatment. Always consult with a qualified healthcare provider for any medical decisions or concerns.*"

const (
	notesStartMarker = "---NOTES_JSON_START---"
	notesEndMarker   = "---NOTES_JSON_END---"
)

// ExtractNotes pulls the structured notes block out of a reply.  On
// success it returns the update and the reply with the block stripped.
// A reply without a block returns ok=false; a block with invalid JSON
// returns an error and leaves the text untouched.
func ExtractNotes(text string) (pkg.NotesUpdate, string, bool, error) {
	start := strings.Index(text, notesStartMarker)
	if start == -1 {
		return pkg.NotesUpdate{}, text, false, nil
	}
	rest := text[start+len(notesStartMarker):]
	end := strings.Index(rest, notesEndMarker)
	if end == -1 {
		return pkg.NotesUpdate{}, text, false, nil
	}

	var update pkg.NotesUpdate
	blob := strings.TrimSpace(rest[:end])
	if err := json.Unmarshal([]byte(blob), &update); err != nil {
		return pkg.NotesUpdate{}, text, false, &pkg.ParseError{Raw: blob, Err: err}
	}
	stripped := strings.TrimSpace(text[:start] + rest[end+len(notesEndMarker):])
	return update, stripped, true, nil
}

// EnsureDisclaimer appends the disclaimer unless the text already
// carries it.
func EnsureDisclaimer(text string) string {
	if strings.Contains(text, Disclaimer[:50]) {
		return text
	}
	return strings.TrimSpace(text) + "\n\n" + Disclaimer
}

// ErrorReply renders the substituted model message for a failed turn.
func ErrorReply(err error) string {
	return fmt.Sprintf("**MEDIFRAMEWORK:** I encountered an error processing your request: %s\n\n%s", err.Error(), Disclaimer)
}

// FormatPatientBackground renders the patient form as the background
// block folded into the first turn after the form changes.  Only
// populated fields are listed; an empty form yields "".
func FormatPatientBackground(data pkg.PatientCoreData) string {
	var sb strings.Builder
	sb.WriteString("Patient Background Information:\n")
	if data.FirstName != "" || data.LastName != "" {
		name := strings.Join(strings.Fields(data.FirstName+" "+data.MiddleName+" "+data.LastName), " ")
		fmt.Fprintf(&sb, "- Name: %s\n", name)
	}
	if data.DateOfBirth != "" {
		fmt.Fprintf(&sb, "- DOB: %s\n", data.DateOfBirth)
	}
	if data.Age != "" {
		fmt.Fprintf(&sb, "- Age: %s years\n", data.Age)
	}
	if data.Gender != "" {
		fmt.Fprintf(&sb, "- Gender/Sex: %s\n", data.Gender)
	}
	if data.City != "" {
		fmt.Fprintf(&sb, "- City: %s\n", data.City)
	}
	if v := strings.TrimSpace(data.CurrentMedications); v != "" {
		fmt.Fprintf(&sb, "- Current Medications: %s\n", v)
	}
	if v := strings.TrimSpace(data.KnownAllergies); v != "" {
		fmt.Fprintf(&sb, "- Known Allergies: %s\n", v)
	}
	if v := strings.TrimSpace(data.ChronicConditions); v != "" {
		fmt.Fprintf(&sb, "- Chronic Conditions: %s\n", v)
	}
	if v := strings.TrimSpace(data.PreviousSurgeries); v != "" {
		fmt.Fprintf(&sb, "- Previous Major Surgeries: %s\n", v)
	}
	if v := strings.TrimSpace(data.ReasonForVisit); v != "" {
		fmt.Fprintf(&sb, "- Current Symptoms/Reason for Visit: %s\n", v)
	}
	if v := strings.TrimSpace(data.PrimaryCarePhysician); v != "" {
		fmt.Fprintf(&sb, "- PCP: %s\n", v)
	}
	if v := strings.TrimSpace(data.AdditionalNotes); v != "" {
		fmt.Fprintf(&sb, "- Additional Notes: %s\n", v)
	}
	out := sb.String()
	if out == "Patient Background Information:\n" {
		return ""
	}
	return out + "\n---\n\n"
}
