package asset

import (
	"fmt"
	"strings"

	"assetdesk-backend/internal/parse"
)

// KeyProjectProperty is the error key of the property-or-project rule.
const KeyProjectProperty = "project_property"

// Errors maps an error key (a Field name, KeyProjectProperty or ServiceKey(i)) to a message.
type Errors map[string]string

// Empty reports whether no error is recorded.
func (e Errors) Empty() bool { return len(e) == 0 }

// Merge copies every entry of other into e.
func (e Errors) Merge(other Errors) {
	for k, v := range other {
		e[k] = v
	}
}

// Clear removes the given keys.
func (e Errors) Clear(keys ...string) {
	for _, k := range keys {
		delete(e, k)
	}
}

// ServiceKey is the error key of the service due entry at index.
func ServiceKey(index int) string {
	return fmt.Sprintf("service_%d", index)
}

const (
	msgNameRequired      = "Asset Name is required"
	msgCompanyRequired   = "Company is required"
	msgPurchaseRequired  = "Purchase Date is required"
	msgLinkRequired      = "Either Property or Project is required"
	msgLinkExclusive     = "Select either a Property or a Project, not both"
	msgTagUnique         = "Tag ID must be unique"
	msgWarrantyOrder     = "Warranty must be after purchase date"
	msgPriceInvalid      = "Purchase Price must be a valid amount"
	msgServiceIncomplete = "Complete both fields for service due"
)

// ValidateBasicDetails checks the first wizard step. existing is the caller's asset collection,
// consulted for tag uniqueness only when the draft creates a new asset.
func ValidateBasicDetails(d Draft, existing []Record) Errors {
	errs := Errors{}

	if d.Name == "" {
		errs[string(FieldName)] = msgNameRequired
	}
	if d.Company == "" {
		errs[string(FieldCompany)] = msgCompanyRequired
	}

	purchaseOK := false
	if d.PurchaseDate == "" {
		errs[string(FieldPurchaseDate)] = msgPurchaseRequired
	} else if _, err := parse.Date(d.PurchaseDate); err != nil {
		errs[string(FieldPurchaseDate)] = invalidDate("Purchase Date")
	} else {
		purchaseOK = true
	}

	switch {
	case d.Property == "" && d.Project == "":
		errs[KeyProjectProperty] = msgLinkRequired
	case d.Property != "" && d.Project != "":
		errs[KeyProjectProperty] = msgLinkExclusive
	}

	if !d.Editing() && tagTaken(d.TagID, existing) {
		errs[string(FieldTagID)] = msgTagUnique
	}

	if d.WarrantyExpiry != "" {
		if _, err := parse.Date(d.WarrantyExpiry); err != nil {
			errs[string(FieldWarrantyExpiry)] = invalidDate("Warranty Expiry")
		} else if purchaseOK && d.PurchaseDate > d.WarrantyExpiry {
			errs[string(FieldWarrantyExpiry)] = msgWarrantyOrder
		}
	}

	if d.PurchasePrice != "" {
		if _, err := parse.Price(d.PurchasePrice); err != nil {
			errs[string(FieldPurchasePrice)] = msgPriceInvalid
		}
	}

	return errs
}

// ValidateServiceSchedule flags every entry that has exactly one of its two fields filled.
func ValidateServiceSchedule(d Draft) Errors {
	errs := Errors{}
	for i, entry := range d.ServiceSchedule {
		if !entry.complete() {
			errs[ServiceKey(i)] = msgServiceIncomplete
		}
	}
	return errs
}

// ValidateSubmit runs every check required before the draft may be sent upstream.
func ValidateSubmit(d Draft, existing []Record) Errors {
	errs := ValidateBasicDetails(d, existing)
	errs.Merge(ValidateServiceSchedule(d))
	return errs
}

// tagTaken reports whether a non-empty tag is already used by a record.
func tagTaken(tag string, existing []Record) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, r := range existing {
		if strings.TrimSpace(r.TagID.String()) == tag {
			return true
		}
	}
	return false
}

func invalidDate(label string) string {
	return label + " must be a valid date (YYYY-MM-DD)"
}
