package enums

import "testing"

func TestParseRoundTrips(t *testing.T) {
	if role, err := ParseUserRole("mechanic"); err != nil || role != UserRoleMechanic {
		t.Fatalf("unexpected role parse: %v %v", role, err)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected invalid role error")
	}
	if method, err := ParsePaymentMethod("mpesa"); err != nil || method != PaymentMethodMpesa {
		t.Fatalf("unexpected method parse: %v %v", method, err)
	}
	if _, err := ParsePaymentStatus("refunded"); err == nil {
		t.Fatal("expected invalid payment status error")
	}
	if !StockMovementReasonServiceUsage.IsValid() {
		t.Fatal("expected service_usage to be valid")
	}
}

func TestServiceStatusTransitions(t *testing.T) {
	cases := []struct {
		from ServiceStatus
		to   ServiceStatus
		want bool
	}{
		{ServiceStatusPending, ServiceStatusInProgress, true},
		{ServiceStatusPending, ServiceStatusCompleted, true},
		{ServiceStatusInProgress, ServiceStatusCompleted, true},
		{ServiceStatusInProgress, ServiceStatusPending, false},
		{ServiceStatusCompleted, ServiceStatusInProgress, false},
		{ServiceStatusCompleted, ServiceStatusCompleted, false},
		{ServiceStatusPending, ServiceStatusPending, true},
		{ServiceStatusPending, ServiceStatus("cancelled"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestStockOperationSign(t *testing.T) {
	if StockOperationAdd.Sign() != 1 || StockOperationSubtract.Sign() != -1 {
		t.Fatal("unexpected stock operation signs")
	}
}
