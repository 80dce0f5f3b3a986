package settlement

import "testing"

func TestSignatureRoundTrip(t *testing.T) {
	sig := Sign("D_1001", "user_7", 150.5, 1700000000, "secret")
	if sig == "" {
		t.Fatal("empty signature")
	}
	if !Verify("D_1001", "user_7", 150.5, 1700000000, "secret", sig) {
		t.Error("signature should verify against the same inputs")
	}
}

func TestSignatureRejectsTampering(t *testing.T) {
	sig := Sign("D_1001", "user_7", 150.5, 1700000000, "secret")

	cases := []struct {
		name                     string
		orderID, userID, secret  string
		amount                   float64
		timestamp                int64
	}{
		{"order id", "D_1002", "user_7", "secret", 150.5, 1700000000},
		{"user id", "D_1001", "user_8", "secret", 150.5, 1700000000},
		{"amount", "D_1001", "user_7", "secret", 151.5, 1700000000},
		{"timestamp", "D_1001", "user_7", "secret", 150.5, 1700000001},
		{"secret", "D_1001", "user_7", "wrong", 150.5, 1700000000},
	}
	for _, c := range cases {
		if Verify(c.orderID, c.userID, c.amount, c.timestamp, c.secret, sig) {
			t.Errorf("tampered %s should not verify", c.name)
		}
	}
}

func TestFormatAmountMatchesPlatform(t *testing.T) {
	cases := map[float64]string{
		100:    "100",
		100.5:  "100.5",
		0.001:  "0.001",
		1234.0: "1234",
	}
	for amount, want := range cases {
		if got := FormatAmount(amount); got != want {
			t.Errorf("FormatAmount(%v) = %q, want %q", amount, got, want)
		}
	}
}
