package risk

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/domain"
)

// Analyzer помечает отчеты с аномально крупными позициями.
// Флаги не блокируют подачу: регулятор сам решает судьбу отчета,
// но комплаенс видит превышения в аудите еще до ответа регулятора.
type Analyzer struct {
	// Порог брутто-позиции (long + short) на товар.
	// Товар без порога не проверяется.
	limits map[domain.Commodity]float64
	logger *zap.Logger
}

func NewAnalyzer(limits map[domain.Commodity]float64, logger *zap.Logger) *Analyzer {
	return &Analyzer{limits: limits, logger: logger.Named("risk")}
}

// Assess возвращает флаги превышения порогов. Пустой срез — отчет чистый.
func (a *Analyzer) Assess(f domain.Filing) []string {
	if len(a.limits) == 0 {
		return nil
	}

	// Брутто-позиции по товарам через все строки отчета
	gross := make(map[domain.Commodity]float64)
	for _, li := range f.LineItems {
		gross[li.Commodity] += li.Long + li.Short
	}

	var flags []string
	for commodity, total := range gross {
		threshold, ok := a.limits[commodity]
		if !ok || total <= threshold {
			continue
		}
		a.logger.Warn("position review threshold exceeded",
			zap.String("commodity", string(commodity)),
			zap.Float64("gross", total),
			zap.Float64("threshold", threshold))
		flags = append(flags, fmt.Sprintf("%s gross position %.2f exceeds review threshold %.2f", commodity, total, threshold))
	}
	return flags
}
