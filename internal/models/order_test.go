package models

import (
	"testing"
)

func TestParseStatus(t *testing.T) {
	valid := []string{"new", "in process", "ready to deliver"}
	for _, s := range valid {
		got, err := ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q): unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	invalid := []string{
		"", "New", "IN PROCESS", "done", "shipped", "ready-to-deliver",
		"in  process", "new ", " new",
	}
	for _, s := range invalid {
		if _, err := ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q): expected error", s)
		}
	}
}

func TestOrderItemLabel(t *testing.T) {
	doc := OrderItem{Kind: ItemDocument, DisplayName: "thesis.pdf", Pages: 42}
	if got := doc.Label(); got != "thesis.pdf" {
		t.Errorf("document label = %q, want %q", got, "thesis.pdf")
	}

	merch := OrderItem{Kind: ItemMerchandise, DisplayName: "Spiral Notebook", Quantity: 3}
	if got := merch.Label(); got != "Spiral Notebook × 3" {
		t.Errorf("merchandise label = %q, want %q", got, "Spiral Notebook × 3")
	}
}

func TestOrderPartition(t *testing.T) {
	o := Order{
		Items: []OrderItem{
			{Kind: ItemDocument, DisplayName: "a.pdf"},
			{Kind: ItemMerchandise, DisplayName: "Pen", Quantity: 2},
			{Kind: ItemDocument, DisplayName: "b.pdf"},
		},
	}

	docs := o.Documents()
	if len(docs) != 2 || docs[0].DisplayName != "a.pdf" || docs[1].DisplayName != "b.pdf" {
		t.Errorf("Documents() = %+v", docs)
	}

	merch := o.Merchandise()
	if len(merch) != 1 || merch[0].DisplayName != "Pen" {
		t.Errorf("Merchandise() = %+v", merch)
	}
}

func TestOrderPartitionEmpty(t *testing.T) {
	o := Order{}
	if docs := o.Documents(); docs != nil {
		t.Errorf("Documents() on empty order = %+v, want nil", docs)
	}
	if merch := o.Merchandise(); merch != nil {
		t.Errorf("Merchandise() on empty order = %+v, want nil", merch)
	}
}

func TestIsStationeryOnly(t *testing.T) {
	if !(&Order{PrintType: PrintStationery}).IsStationeryOnly() {
		t.Error("stationery order should be stationery-only")
	}
	if (&Order{PrintType: PrintBlackWhite}).IsStationeryOnly() {
		t.Error("bw order should not be stationery-only")
	}
	if (&Order{PrintType: PrintColor}).IsStationeryOnly() {
		t.Error("color order should not be stationery-only")
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"user", "admin"} {
		role, ok := ParseRole(s)
		if !ok || string(role) != s {
			t.Errorf("ParseRole(%q) = %q, %v", s, role, ok)
		}
	}
	for _, s := range []string{"", "Admin", "superadmin", "root"} {
		if _, ok := ParseRole(s); ok {
			t.Errorf("ParseRole(%q): expected rejection", s)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin role should report IsAdmin")
	}
	if (&User{Role: RoleUser}).IsAdmin() {
		t.Error("user role should not report IsAdmin")
	}
}
