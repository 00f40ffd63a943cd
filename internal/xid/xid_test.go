package xid

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewUsesPrefixAndIsUnique(t *testing.T) {
	a := New("bill")
	b := New("bill")
	if !strings.HasPrefix(a, "bill_") {
		t.Fatalf("expected bill_ prefix, got %s", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
}

func TestBillNumberFormat(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 5, 7, 0, time.UTC)
	got := BillNumber(at)

	pattern := regexp.MustCompile(`^BILL-20261014-090507-[0-9A-F]{6}$`)
	if !pattern.MatchString(got) {
		t.Fatalf("unexpected bill number %q", got)
	}
}
