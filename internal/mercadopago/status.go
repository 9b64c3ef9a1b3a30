package mercadopago

import "eventomw/internal/model"

// statusMap is the fixed translation from Mercado Pago payment statuses to
// local order statuses.
var statusMap = map[string]string{
	"approved":     model.StatusPaid,
	"pending":      model.StatusPending,
	"in_process":   model.StatusPending,
	"in_mediation": model.StatusPending,
	"rejected":     model.StatusCanceled,
	"cancelled":    model.StatusCanceled,
	"refunded":     model.StatusCanceled,
	"charged_back": model.StatusCanceled,
}

// MapStatus translates a gateway status. Unknown statuses map to pending —
// never silently to paid or canceled — and known=false tells the caller to
// log the anomaly.
func MapStatus(gatewayStatus string) (local string, known bool) {
	if s, ok := statusMap[gatewayStatus]; ok {
		return s, true
	}
	return model.StatusPending, false
}
