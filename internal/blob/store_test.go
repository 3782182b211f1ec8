package blob

import (
	"strings"
	"testing"
)

func TestNewEpodBlobName(t *testing.T) {
	name := NewEpodBlobName(42)

	if !strings.HasPrefix(name, "epod/42/") {
		t.Errorf("blob name %q is not scoped to the order", name)
	}
	if !strings.HasSuffix(name, ".pdf") {
		t.Errorf("blob name %q has no .pdf suffix", name)
	}
}

func TestNewEpodBlobNameUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := NewEpodBlobName(1)
		if seen[name] {
			t.Fatalf("duplicate blob name generated: %s", name)
		}
		seen[name] = true
	}
}

func TestNewInvoiceBlobName(t *testing.T) {
	name := NewInvoiceBlobName(7)
	if !strings.HasPrefix(name, "invoices/7/") {
		t.Errorf("blob name %q is not scoped to the order", name)
	}
}
