package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"assetdesk-backend/internal/parse"
)

// Form keys that are not scalar draft fields.
const (
	FormServiceDues = "service_dues"
	FormDocuments   = "documents"
)

// ScheduleJSON is a service schedule encoded the way a browser's JSON.stringify would encode it.
type ScheduleJSON string

// EncodeSchedule serialises the schedule without HTML escaping and without a trailing newline.
// U+2028 and U+2029 are written raw, as JSON.stringify writes them.
func EncodeSchedule(schedule []ServiceDue) (ScheduleJSON, error) {
	if schedule == nil {
		schedule = []ServiceDue{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(schedule); err != nil {
		return "", fmt.Errorf("failed to encode service schedule: %w", err)
	}
	return ScheduleJSON(unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n"))), nil
}

// unescapeLineSeparators rewrites the \u2028 and \u2029 escapes of encoder output as raw runes.
// Every backslash in encoder output starts an escape, so escaped backslashes are copied as pairs.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if rest := b[i+1:]; bytes.HasPrefix(rest, []byte("u2028")) || bytes.HasPrefix(rest, []byte("u2029")) {
			if rest[4] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// FormField is one scalar multipart part.
type FormField struct {
	Name  string
	Value string
}

// Payload is the wire form of a draft: scalar parts, the schedule as a JSON string and file parts.
type Payload struct {
	ID          Scalar
	Fields      []FormField
	ServiceDues ScheduleJSON
	Files       []Attachment
}

// NewPayload maps a draft onto its wire form. link_type stays behind: it only drives the form.
func NewPayload(d Draft) (Payload, error) {
	dues, err := EncodeSchedule(d.ServiceSchedule)
	if err != nil {
		return Payload{}, err
	}

	price := d.PurchasePrice
	if price != "" {
		if normalised, err := parse.Price(price); err == nil {
			price = normalised
		}
	}

	return Payload{
		ID: d.ID,
		Fields: []FormField{
			{Name: string(FieldCompany), Value: d.Company},
			{Name: string(FieldProperty), Value: d.Property},
			{Name: string(FieldProject), Value: d.Project},
			{Name: string(FieldName), Value: d.Name},
			{Name: string(FieldCategory), Value: d.Category},
			{Name: string(FieldPurchaseDate), Value: d.PurchaseDate},
			{Name: string(FieldPurchasePrice), Value: price},
			{Name: string(FieldWarrantyExpiry), Value: d.WarrantyExpiry},
			{Name: string(FieldLocation), Value: d.Location},
			{Name: string(FieldMaintenanceFrequency), Value: d.MaintenanceFrequency},
			{Name: string(FieldTagID), Value: d.TagID},
			{Name: string(FieldIsActive), Value: strconv.FormatBool(d.IsActive)},
			{Name: string(FieldNotes), Value: d.Notes},
		},
		ServiceDues: dues,
		Files:       append([]Attachment(nil), d.Files...),
	}, nil
}

// Field returns the value of a scalar part.
func (p Payload) Field(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}
