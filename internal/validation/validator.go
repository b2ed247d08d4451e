package validation

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/quantenergx/filing-gateway/internal/domain"
)

// SumTolerance — допуск сверки агрегатов (0.01 валютной единицы).
// Позиции приходят как float64, поэтому точное равенство не гарантируется.
const SumTolerance = 0.01

var (
	// LEI по ISO 17442: 18 алфанумерик + 2 контрольные цифры
	leiPattern = regexp.MustCompile(`^[A-Z0-9]{18}[0-9]{2}$`)
	// Код месяца CME: буква месяца + две цифры года, например "H26"
	contractMonthPattern = regexp.MustCompile(`^[FGHJKMNQUVXZ][0-9]{2}$`)
	// ISO 4217: ровно три заглавные буквы
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9][0-9 \-()]{6,19}$`)
)

var allowedCommodities = map[domain.Commodity]struct{}{
	domain.CommodityCrudeOil:    {},
	domain.CommodityNaturalGas:  {},
	domain.CommodityElectricity: {},
	domain.CommodityRefined:     {},
	domain.CommodityRenewables:  {},
}

var allowedFilingTypes = map[domain.FilingType]struct{}{
	domain.FilingForm102: {},
	domain.FilingMAS610A: {},
}

// Result — итог проверки отчета. Errors упорядочен: сообщения идут
// в порядке обнаружения, сначала структурные, потом бизнес-правила.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate выполняет двухфазную проверку отчета. Чистая функция без
// побочных эффектов, безопасна для конкурентных вызовов.
//
// Фаза 1 (структурная): собираем ВСЕ нарушения формата, не останавливаясь
// на первом. Если есть хоть одно — возвращаемся сразу, бизнес-правила
// не запускаются: структурный шум не смешивается с арифметикой агрегатов.
//
// Фаза 2 (бизнес-правила): пересчет агрегатов по позициям и сверка
// с заявленными значениями в пределах SumTolerance.
func Validate(f domain.Filing) Result {
	errs := structural(f)
	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}

	errs = businessRules(f)
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func structural(f domain.Filing) []string {
	var errs []string
	now := time.Now()

	if f.Type == "" {
		errs = append(errs, "filing type is required")
	} else if _, ok := allowedFilingTypes[f.Type]; !ok {
		errs = append(errs, fmt.Sprintf("unknown filing type %q", f.Type))
	}

	if f.Institution.Name == "" {
		errs = append(errs, "institution name is required")
	}
	if f.Institution.LEI == "" {
		errs = append(errs, "institution LEI is required")
	} else if !leiPattern.MatchString(f.Institution.LEI) {
		errs = append(errs, fmt.Sprintf("institution LEI %q does not match ISO 17442 format", f.Institution.LEI))
	}
	if f.Institution.Email != "" && !emailPattern.MatchString(f.Institution.Email) {
		errs = append(errs, fmt.Sprintf("institution email %q is not a valid address", f.Institution.Email))
	}
	if f.Institution.Phone != "" && !phonePattern.MatchString(f.Institution.Phone) {
		errs = append(errs, fmt.Sprintf("institution phone %q is not a valid number", f.Institution.Phone))
	}

	if f.Period == "" {
		errs = append(errs, "reporting period is required")
	}
	if f.ReportingDate.IsZero() {
		errs = append(errs, "reporting date is required")
	} else if f.ReportingDate.After(now) {
		errs = append(errs, "reporting date cannot be in the future")
	}

	if len(f.LineItems) == 0 {
		errs = append(errs, "filing must contain at least one line item")
	}
	for i, li := range f.LineItems {
		errs = append(errs, lineItem(i, li, now)...)
	}

	return errs
}

func lineItem(i int, li domain.LineItem, now time.Time) []string {
	var errs []string

	if li.Commodity == "" {
		errs = append(errs, fmt.Sprintf("line item %d: commodity is required", i+1))
	} else if _, ok := allowedCommodities[li.Commodity]; !ok {
		errs = append(errs, fmt.Sprintf("line item %d: unknown commodity %q", i+1, li.Commodity))
	}
	if !contractMonthPattern.MatchString(li.ContractMonth) {
		errs = append(errs, fmt.Sprintf("line item %d: contract month %q must be a CME month code like H26", i+1, li.ContractMonth))
	}
	if !currencyPattern.MatchString(li.Currency) {
		errs = append(errs, fmt.Sprintf("line item %d: currency %q must be exactly 3 uppercase letters", i+1, li.Currency))
	}
	if li.Long < 0 {
		errs = append(errs, fmt.Sprintf("line item %d: long quantity cannot be negative", i+1))
	}
	if li.Short < 0 {
		errs = append(errs, fmt.Sprintf("line item %d: short quantity cannot be negative", i+1))
	}
	if li.MaturityDate.IsZero() {
		errs = append(errs, fmt.Sprintf("line item %d: maturity date is required", i+1))
	} else if !li.MaturityDate.After(now) {
		errs = append(errs, fmt.Sprintf("line item %d: maturity date must be strictly in the future", i+1))
	}

	return errs
}

func businessRules(f domain.Filing) []string {
	var errs []string

	var sumLong, sumShort float64
	for _, li := range f.LineItems {
		sumLong += li.Long
		sumShort += li.Short
	}

	if math.Abs(sumLong-f.Summary.TotalLong) > SumTolerance {
		errs = append(errs, fmt.Sprintf(
			"summary total long positions %.2f does not match line item sum %.2f", f.Summary.TotalLong, sumLong))
	}
	if math.Abs(sumShort-f.Summary.TotalShort) > SumTolerance {
		errs = append(errs, fmt.Sprintf(
			"summary total short positions %.2f does not match line item sum %.2f", f.Summary.TotalShort, sumShort))
	}

	return errs
}
