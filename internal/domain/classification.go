// Package domain defines the core types shared across the intake service:
// classifications, sessions, tickets, and the turn request/response envelopes.
package domain

import "fmt"

// Classification is one of the closed set of service domains a turn can be
// routed to. The zero value is not valid; unclassified turns carry
// ClassificationUndecided.
type Classification string

const (
	ClassificationUndecided     Classification = "indecisa"
	ClassificationHuman         Classification = "atencion_humana"
	ClassificationUtilityBill   Classification = "energia_facturacion"
	ClassificationWaterLeak     Classification = "fuga_agua"
	ClassificationStreetLight   Classification = "alumbrado"
	ClassificationPothole       Classification = "baches"
	ClassificationGarbage       Classification = "recoleccion_basura"
	ClassificationDrainage      Classification = "drenaje"
	ClassificationPropertyTax   Classification = "predial"
	ClassificationLicenses      Classification = "licencias"
	ClassificationTrafficFines  Classification = "multas_transito"
	ClassificationSecurity      Classification = "seguridad"
	ClassificationParks         Classification = "parques_jardines"
	ClassificationCivilRegistry Classification = "registro_civil"
	ClassificationComplaint     Classification = "quejas_sugerencias"
	ClassificationGeneralInfo   Classification = "informacion_general"
)

// SubClassification refines ClassificationUtilityBill into one of five
// billing sub-domains. It is never set for any other classification.
type SubClassification string

const (
	SubClassificationNone     SubClassification = ""
	SubClassificationDebt     SubClassification = "adeudo"
	SubClassificationUsage    SubClassification = "consumos"
	SubClassificationContract SubClassification = "contrato"
	SubClassificationDispute  SubClassification = "aclaraciones"
	SubClassificationPayments SubClassification = "pagos"
)

var validClassifications = map[Classification]bool{
	ClassificationUndecided:     true,
	ClassificationHuman:         true,
	ClassificationUtilityBill:   true,
	ClassificationWaterLeak:     true,
	ClassificationStreetLight:   true,
	ClassificationPothole:       true,
	ClassificationGarbage:       true,
	ClassificationDrainage:      true,
	ClassificationPropertyTax:   true,
	ClassificationLicenses:      true,
	ClassificationTrafficFines:  true,
	ClassificationSecurity:      true,
	ClassificationParks:         true,
	ClassificationCivilRegistry: true,
	ClassificationComplaint:     true,
	ClassificationGeneralInfo:   true,
}

var validSubClassifications = map[SubClassification]bool{
	SubClassificationDebt:     true,
	SubClassificationUsage:    true,
	SubClassificationContract: true,
	SubClassificationDispute:  true,
	SubClassificationPayments: true,
}

// Valid reports whether c is a member of the closed classification set.
func (c Classification) Valid() bool { return validClassifications[c] }

// Valid reports whether s is a member of the closed sub-classification set.
func (s SubClassification) Valid() bool { return validSubClassifications[s] }

// Classifications returns every member of the closed set, undecided included.
func Classifications() []Classification {
	out := make([]Classification, 0, len(validClassifications))
	for c := range validClassifications {
		out = append(out, c)
	}
	return out
}

// ValidatePair enforces the enum invariant: a sub-classification may be
// present only when the classification is the utility-billing domain.
func ValidatePair(c Classification, s SubClassification) error {
	if !c.Valid() {
		return fmt.Errorf("unknown classification %q", c)
	}
	if s == SubClassificationNone {
		return nil
	}
	if !s.Valid() {
		return fmt.Errorf("unknown sub-classification %q", s)
	}
	if c != ClassificationUtilityBill {
		return fmt.Errorf("sub-classification %q not allowed for %q", s, c)
	}
	return nil
}
