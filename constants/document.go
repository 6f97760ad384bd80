package constants

import "strings"

// DocumentType selects the field pattern set used for extraction.
type DocumentType string

const (
	DocumentTTN     DocumentType = "ttn"
	DocumentGeneric DocumentType = "generic"
)

var allDocumentTypes = []DocumentType{DocumentTTN, DocumentGeneric}

func DocumentTypes() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// CanonicalDocumentType maps loose labels used by older tables onto the stable values.
func CanonicalDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]DocumentType{
		"transport_waybill": DocumentTTN,
		"waybill":           DocumentTTN,
		"ттн":               DocumentTTN,
		"default":           DocumentGeneric,
	}
	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}
	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}
	return DocumentGeneric, false
}

// Canonical field names shared by the extractor, validator and exports.
const (
	FieldDocumentNumber   = "document_number"
	FieldDocumentDate     = "document_date"
	FieldSender           = "sender"
	FieldReceiver         = "receiver"
	FieldINN              = "inn"
	FieldVehicleNumber    = "vehicle_number"
	FieldDriverName       = "driver_name"
	FieldCargoDescription = "cargo_description"
	FieldCargoWeight      = "cargo_weight"
	FieldCargoWeightNet   = "cargo_weight_net"
	FieldCargoWeightGross = "cargo_weight_gross"
	FieldCargoVolume      = "cargo_volume"
	FieldPackageCount     = "package_count"
	FieldQuantity         = "quantity"
)

// ExportFieldOrder is the column order used by reports.
var ExportFieldOrder = []string{
	FieldDocumentNumber,
	FieldDocumentDate,
	FieldSender,
	FieldReceiver,
	FieldINN,
	FieldVehicleNumber,
	FieldDriverName,
	FieldCargoDescription,
	FieldCargoWeight,
	FieldCargoWeightNet,
	FieldCargoWeightGross,
	FieldCargoVolume,
	FieldPackageCount,
	FieldQuantity,
}
