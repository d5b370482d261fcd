package asset

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Scalar is a JSON scalar (string, number or null) carried as text. The upstream uses integer
// primary keys and decimal strings; Scalar lets the service stay agnostic of either.
type Scalar string

var canonicalInt = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)

// UnmarshalJSON accepts strings, numbers and null.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = Scalar(n.String())
	return nil
}

// MarshalJSON writes canonical integers as JSON numbers and everything else as a string,
// so integer keys read from the upstream are echoed back the way they arrived.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if canonicalInt.MatchString(string(s)) {
		if _, err := strconv.ParseInt(string(s), 10, 64); err == nil {
			return []byte(s), nil
		}
	}
	return json.Marshal(string(s))
}

func (s Scalar) String() string { return string(s) }

// Option is one entry of a dropdown list (company, property or project).
type Option struct {
	ID   Scalar `json:"id"`
	Name string `json:"name"`
}

// Document is a file already persisted on the upstream for an asset.
type Document struct {
	ID  Scalar `json:"id"`
	URL string `json:"document"`
}

// ServiceDue is one scheduled maintenance entry.
type ServiceDue struct {
	ID          Scalar `json:"id,omitempty"`
	DueDate     string `json:"due_date"`
	Description string `json:"description"`
}

// Record is an asset as listed by the upstream API.
type Record struct {
	ID                   Scalar       `json:"id"`
	Company              Scalar       `json:"company"`
	Property             Scalar       `json:"property"`
	Project              Scalar       `json:"project"`
	Name                 string       `json:"name"`
	TagID                Scalar       `json:"tag_id"`
	Category             string       `json:"category"`
	PurchaseDate         Scalar       `json:"purchase_date"`
	PurchasePrice        Scalar       `json:"purchase_price"`
	WarrantyExpiry       Scalar       `json:"warranty_expiry"`
	Location             string       `json:"location"`
	MaintenanceFrequency string       `json:"maintenance_frequency"`
	Notes                string       `json:"notes"`
	IsActive             *bool        `json:"is_active"`
	CreatedAt            string       `json:"created_at,omitempty"`
	Documents            []Document   `json:"documents"`
	ServiceDues          []ServiceDue `json:"service_dues"`
	CompanyName          string       `json:"company_name,omitempty"`
	PropertyName         string       `json:"property_name,omitempty"`
	ProjectName          string       `json:"project_name,omitempty"`
}

// Active reports whether the record should be listed. A missing flag counts as active.
func (r Record) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// ActiveOnly drops deactivated records, keeping order.
func ActiveOnly(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Active() {
			out = append(out, r)
		}
	}
	return out
}

// FilterByName keeps the records whose name contains term, ignoring case.
func FilterByName(records []Record, term string) []Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), term) {
			out = append(out, r)
		}
	}
	return out
}

// FindRecord returns the record with the given id.
func FindRecord(records []Record, id Scalar) (Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}
