package email

import (
	"strings"
	"testing"
)

func TestRenderStatusRevertedTemplate(t *testing.T) {
	content, err := renderEmailTemplate("status_reverted.html", statusRevertedEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectStatusReverted,
			Heading: "Status revertido",
			Name:    "Ana",
		},
		DiligenceTitle: "Audiência em Campinas",
		PreviousStatus: "completed",
		NewStatus:      "in_progress",
		Reason:         "documento pendente",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Ana", "Audiência em Campinas", "completed", "in_progress", "documento pendente"} {
		if !strings.Contains(content, want) {
			t.Errorf("rendered email missing %q", want)
		}
	}
}

func TestRenderProofReviewedTemplate(t *testing.T) {
	for _, approved := range []bool{true, false} {
		content, err := renderEmailTemplate("proof_reviewed.html", proofReviewedEmailData{
			baseEmailData:  baseEmailData{Title: "t", Heading: "h"},
			DiligenceTitle: "Protocolo de petição",
			Approved:       approved,
		})
		if err != nil {
			t.Fatalf("render approved=%v: %v", approved, err)
		}
		if approved && !strings.Contains(content, "aprovado") {
			t.Error("approved email must mention approval")
		}
		if !approved && !strings.Contains(content, "recusado") {
			t.Error("rejected email must mention rejection")
		}
	}
}
