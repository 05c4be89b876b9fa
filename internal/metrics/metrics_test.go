package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	CatalogEntries.Set(4)
	RangeRequestsTotal.WithLabelValues("partial").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "movieshell_") {
			t.Fatalf("metric %q outside namespace", mf.GetName())
		}
		names[mf.GetName()] = true
	}
	for _, want := range []string{"movieshell_catalog_entries", "movieshell_range_requests_total", "movieshell_active_transfers"} {
		if !names[want] {
			t.Fatalf("missing %s in %v", want, names)
		}
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	Register(reg)
}
