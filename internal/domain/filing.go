package domain

import "time"

// FilingType определяет формат отчета конкретного регулятора
type FilingType string

const (
	FilingForm102 FilingType = "Form102"  // CFTC Large Trader Position Report (US)
	FilingMAS610A FilingType = "MAS610A"  // MAS Derivative Risk Report (Singapore)
)

// Commodity — разрешенные типы базовых активов в позициях
type Commodity string

const (
	CommodityCrudeOil    Commodity = "crude_oil"
	CommodityNaturalGas  Commodity = "natural_gas"
	CommodityElectricity Commodity = "electricity"
	CommodityRefined     Commodity = "refined_products"
	CommodityRenewables  Commodity = "renewable_certificates"
)

// Institution — блок идентификации подотчетной организации
type Institution struct {
	Name  string `json:"name"`
	LEI   string `json:"lei"`   // Legal Entity Identifier (ISO 17442, 20 символов)
	Email string `json:"email"` // Контакт комплаенс-офицера
	Phone string `json:"phone"`
}

// LineItem — одна позиция отчета.
// Long/Short — объемы в лотах, Currency — валюта номинала контракта.
type LineItem struct {
	Commodity     Commodity `json:"commodity"`
	ContractMonth string    `json:"contract_month"` // Код месяца CME, например "H26"
	Currency      string    `json:"currency"`       // ISO 4217, ровно 3 заглавные буквы
	Long          float64   `json:"long"`
	Short         float64   `json:"short"`
	MaturityDate  time.Time `json:"maturity_date"` // Строго в будущем
}

// FilingSummary — агрегаты, заявленные составителем отчета.
// Движок пересчитывает их по позициям и сверяет с допуском 0.01.
type FilingSummary struct {
	TotalLong  float64 `json:"total_long"`
	TotalShort float64 `json:"total_short"`
}

// Filing — иммутабельный входной документ. Конструируется вызывающей
// стороной (HTTP-слоем), движок его никогда не изменяет.
type Filing struct {
	Type          FilingType    `json:"type"`
	Institution   Institution   `json:"institution"`
	Period        string        `json:"period"`         // Отчетный период, например "2026-08"
	ReportingDate time.Time     `json:"reporting_date"` // Не может быть в будущем
	LineItems     []LineItem    `json:"line_items"`
	Summary       FilingSummary `json:"summary"`
}
