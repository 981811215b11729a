package redis

import (
	"testing"
	"time"
)

func TestDecodeTransactionNumericID(t *testing.T) {
	txn, err := DecodeTransaction([]byte(`{"id": 42, "narration": "UBER TRIP", "amount": 1200}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.ID != 42 {
		t.Errorf("expected id 42, got %d", txn.ID)
	}
	if txn.Narration != "UBER TRIP" {
		t.Errorf("expected narration preserved, got %q", txn.Narration)
	}
	if txn.Amount != 1200 {
		t.Errorf("expected amount 1200, got %d", txn.Amount)
	}
}

func TestDecodeTransactionStringID(t *testing.T) {
	txn, err := DecodeTransaction([]byte(`{"id": "42", "narration": "salary"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.ID != 42 {
		t.Errorf("expected id 42, got %d", txn.ID)
	}
}

func TestDecodeTransactionIgnoresUnknownFields(t *testing.T) {
	txn, err := DecodeTransaction([]byte(`{"id": 1, "narration": "x", "amount": 10, "source": "mobile", "retries": 3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.ID != 1 {
		t.Errorf("expected id 1, got %d", txn.ID)
	}
}

func TestDecodeTransactionDateLayouts(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{`{"id": 1, "narration": "x", "date": "2025-06-07T10:30:00Z"}`,
			time.Date(2025, 6, 7, 10, 30, 0, 0, time.UTC)},
		{`{"id": 1, "narration": "x", "date": "2025-06-07T10:30:00"}`,
			time.Date(2025, 6, 7, 10, 30, 0, 0, time.UTC)},
		{`{"id": 1, "narration": "x", "date": "2025-06-07"}`,
			time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		txn, err := DecodeTransaction([]byte(tc.raw))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.raw, err)
			continue
		}
		if txn.Date == nil || !txn.Date.Equal(tc.want) {
			t.Errorf("%s: expected date %v, got %v", tc.raw, tc.want, txn.Date)
		}
	}
}

func TestDecodeTransactionNoDate(t *testing.T) {
	txn, err := DecodeTransaction([]byte(`{"id": 1, "narration": "x"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Date != nil {
		t.Errorf("expected nil date, got %v", txn.Date)
	}
}

func TestDecodeTransactionMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `not json at all`},
		{"missing id", `{"narration": "x"}`},
		{"zero id", `{"id": 0, "narration": "x"}`},
		{"negative id", `{"id": -5, "narration": "x"}`},
		{"non-numeric string id", `{"id": "abc", "narration": "x"}`},
		{"missing narration", `{"id": 1, "amount": 10}`},
		{"unparsable date", `{"id": 1, "narration": "x", "date": "last tuesday"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeTransaction([]byte(tc.raw)); err == nil {
				t.Errorf("expected error for %s", tc.raw)
			}
		})
	}
}
