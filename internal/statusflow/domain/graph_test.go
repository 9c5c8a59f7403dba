package domain

import "testing"

func TestForwardLegalDiligence(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusInProgress, false},
		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusDisputed, true},
		{StatusDisputed, StatusInProgress, true},
		{StatusCompleted, StatusCancelled, false}, // forward-terminal
		{StatusCancelled, StatusPending, false},   // forward-terminal
		{StatusCompleted, StatusPending, false},
	}

	for _, tc := range tests {
		if got := ForwardLegal(EntityDiligence, tc.from, tc.to); got != tc.want {
			t.Errorf("ForwardLegal(diligence, %s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestForwardLegalPayment(t *testing.T) {
	tests := []struct {
		kind     PaymentKind
		from, to Status
		want     bool
	}{
		{PaymentClient, StatusPending, StatusPendingVerification, true},
		{PaymentClient, StatusPending, StatusPaid, true},
		{PaymentClient, StatusPendingVerification, StatusPaid, true},
		{PaymentClient, StatusPendingVerification, StatusPending, true},
		{PaymentClient, StatusPaid, StatusPending, false},
		{PaymentCorrespondent, StatusPending, StatusPaid, true},
		{PaymentCorrespondent, StatusPending, StatusPendingVerification, false},
		{PaymentCorrespondent, StatusPaid, StatusPending, false},
	}

	for _, tc := range tests {
		if got := ForwardLegalPayment(tc.kind, tc.from, tc.to); got != tc.want {
			t.Errorf("ForwardLegalPayment(%s, %s, %s) = %v, want %v", tc.kind, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestReversionTargetsDiligence(t *testing.T) {
	tests := []struct {
		current Status
		want    []Status
	}{
		{StatusCompleted, []Status{StatusInProgress}},
		{StatusInProgress, []Status{StatusAssigned}},
		{StatusAssigned, []Status{StatusPending}},
		{StatusCancelled, []Status{StatusPending, StatusAssigned, StatusInProgress}},
		{StatusDisputed, []Status{StatusInProgress}},
		{StatusPending, nil},
	}

	for _, tc := range tests {
		got := ReversionTargets(EntityDiligence, tc.current)
		if len(got) != len(tc.want) {
			t.Errorf("ReversionTargets(diligence, %s) = %v, want %v", tc.current, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("ReversionTargets(diligence, %s) = %v, want %v", tc.current, got, tc.want)
				break
			}
		}
	}
}

func TestReversionTargetsPayment(t *testing.T) {
	got := ReversionTargets(EntityPayment, StatusPaid)
	if len(got) != 2 || got[0] != StatusPendingVerification || got[1] != StatusPending {
		t.Errorf("ReversionTargets(payment, paid) = %v", got)
	}

	got = ReversionTargets(EntityPayment, StatusPendingVerification)
	if len(got) != 1 || got[0] != StatusPending {
		t.Errorf("ReversionTargets(payment, pending_verification) = %v", got)
	}

	if got := ReversionTargets(EntityPayment, StatusPending); len(got) != 0 {
		t.Errorf("ReversionTargets(payment, pending) = %v, want empty", got)
	}
}

func TestReversionTargetsReturnsCopy(t *testing.T) {
	first := ReversionTargets(EntityDiligence, StatusCancelled)
	first[0] = StatusDisputed
	second := ReversionTargets(EntityDiligence, StatusCancelled)
	if second[0] != StatusPending {
		t.Error("mutating a returned target slice leaked into the graph")
	}
}

func TestRequiresCorrespondent(t *testing.T) {
	for _, s := range []Status{StatusAssigned, StatusInProgress, StatusCompleted} {
		if !RequiresCorrespondent(s) {
			t.Errorf("RequiresCorrespondent(%s) = false, want true", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusCancelled, StatusDisputed} {
		if RequiresCorrespondent(s) {
			t.Errorf("RequiresCorrespondent(%s) = true, want false", s)
		}
	}
}
