package risk_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/domain"
	"github.com/quantenergx/filing-gateway/internal/risk"
)

func filing(items ...domain.LineItem) domain.Filing {
	return domain.Filing{LineItems: items}
}

func TestAssessFlagsExceededCommodity(t *testing.T) {
	a := risk.NewAnalyzer(map[domain.Commodity]float64{
		domain.CommodityCrudeOil: 1000,
	}, zap.NewNop())

	// Брутто 700+500 = 1200 через две строки одного товара
	flags := a.Assess(filing(
		domain.LineItem{Commodity: domain.CommodityCrudeOil, Long: 400, Short: 300},
		domain.LineItem{Commodity: domain.CommodityCrudeOil, Long: 300, Short: 200},
	))

	if len(flags) != 1 {
		t.Fatalf("flags = %v, want exactly one", flags)
	}
	if !strings.Contains(flags[0], "crude_oil") || !strings.Contains(flags[0], "1200.00") {
		t.Fatalf("flag %q must name the commodity and the gross position", flags[0])
	}
}

func TestAssessIgnoresCommodityWithoutLimit(t *testing.T) {
	a := risk.NewAnalyzer(map[domain.Commodity]float64{
		domain.CommodityCrudeOil: 1000,
	}, zap.NewNop())

	flags := a.Assess(filing(
		domain.LineItem{Commodity: domain.CommodityElectricity, Long: 1e9, Short: 1e9},
	))
	if len(flags) != 0 {
		t.Fatalf("flags = %v, want none for uncapped commodity", flags)
	}
}

func TestAssessCleanFiling(t *testing.T) {
	a := risk.NewAnalyzer(map[domain.Commodity]float64{
		domain.CommodityCrudeOil: 1000,
	}, zap.NewNop())

	flags := a.Assess(filing(
		domain.LineItem{Commodity: domain.CommodityCrudeOil, Long: 600, Short: 400},
	))
	if len(flags) != 0 {
		t.Fatalf("flags = %v, gross exactly at threshold must pass", flags)
	}
}

func TestAssessNoLimitsConfigured(t *testing.T) {
	a := risk.NewAnalyzer(nil, zap.NewNop())

	flags := a.Assess(filing(
		domain.LineItem{Commodity: domain.CommodityCrudeOil, Long: 1e12},
	))
	if flags != nil {
		t.Fatalf("flags = %v, want nil without configured limits", flags)
	}
}
