package asset

import (
	"errors"
	"fmt"
	"strconv"

	"assetdesk-backend/internal/parse"
)

// LinkType selects which association an asset carries besides its company.
type LinkType string

const (
	LinkNone     LinkType = ""
	LinkProperty LinkType = "property"
	LinkProject  LinkType = "project"
)

// Field names a scalar draft field. The values double as form keys on the wire and as keys in Errors.
type Field string

const (
	FieldCompany              Field = "company"
	FieldLinkType             Field = "link_type"
	FieldProperty             Field = "property"
	FieldProject              Field = "project"
	FieldName                 Field = "name"
	FieldCategory             Field = "category"
	FieldPurchaseDate         Field = "purchase_date"
	FieldPurchasePrice        Field = "purchase_price"
	FieldWarrantyExpiry       Field = "warranty_expiry"
	FieldLocation             Field = "location"
	FieldMaintenanceFrequency Field = "maintenance_frequency"
	FieldTagID                Field = "tag_id"
	FieldIsActive             Field = "is_active"
	FieldNotes                Field = "notes"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid field value")
)

// Draft is the unsaved asset a wizard session works on.
type Draft struct {
	ID                   Scalar       `json:"id,omitempty"`
	Company              string       `json:"company"`
	LinkType             LinkType     `json:"link_type"`
	Property             string       `json:"property"`
	Project              string       `json:"project"`
	Name                 string       `json:"name"`
	Category             string       `json:"category"`
	PurchaseDate         string       `json:"purchase_date"`
	PurchasePrice        string       `json:"purchase_price"`
	WarrantyExpiry       string       `json:"warranty_expiry"`
	Location             string       `json:"location"`
	MaintenanceFrequency string       `json:"maintenance_frequency"`
	TagID                string       `json:"tag_id"`
	IsActive             bool         `json:"is_active"`
	Notes                string       `json:"notes"`
	ServiceSchedule      []ServiceDue `json:"service_schedule"`
	Files                []Attachment `json:"-"`
	ExistingDocuments    []Document   `json:"-"`
}

// NewDraft returns the empty draft used in add mode.
func NewDraft() Draft {
	return Draft{
		IsActive:        true,
		ServiceSchedule: []ServiceDue{{}},
	}
}

// DraftFromRecord seeds an edit-mode draft. New files are never prefilled.
func DraftFromRecord(r Record) Draft {
	d := Draft{
		ID:                   r.ID,
		Company:              r.Company.String(),
		Property:             r.Property.String(),
		Project:              r.Project.String(),
		Name:                 r.Name,
		Category:             r.Category,
		PurchaseDate:         parse.DatePrefix(r.PurchaseDate.String()),
		PurchasePrice:        r.PurchasePrice.String(),
		WarrantyExpiry:       parse.DatePrefix(r.WarrantyExpiry.String()),
		Location:             r.Location,
		MaintenanceFrequency: r.MaintenanceFrequency,
		TagID:                r.TagID.String(),
		IsActive:             r.Active(),
		Notes:                r.Notes,
	}
	switch {
	case d.Property != "":
		d.LinkType = LinkProperty
	case d.Project != "":
		d.LinkType = LinkProject
	}

	d.ServiceSchedule = make([]ServiceDue, 0, len(r.ServiceDues))
	for _, due := range r.ServiceDues {
		due.DueDate = parse.DatePrefix(due.DueDate)
		d.ServiceSchedule = append(d.ServiceSchedule, due)
	}
	if len(d.ServiceSchedule) == 0 {
		d.ServiceSchedule = []ServiceDue{{}}
	}
	d.ExistingDocuments = append([]Document(nil), r.Documents...)
	return d
}

// Editing reports whether the draft updates an existing asset.
func (d Draft) Editing() bool {
	return d.ID != ""
}

// Set applies a single field update. Link fields keep the property/project pair exclusive.
func (d *Draft) Set(f Field, value string) error {
	switch f {
	case FieldCompany:
		d.Company = value
	case FieldLinkType:
		switch LinkType(value) {
		case LinkProperty:
			d.LinkType, d.Project = LinkProperty, ""
		case LinkProject:
			d.LinkType, d.Property = LinkProject, ""
		case LinkNone:
			d.LinkType, d.Property, d.Project = LinkNone, "", ""
		default:
			return fmt.Errorf("%w: link_type %q", ErrInvalidValue, value)
		}
	case FieldProperty:
		d.Property, d.Project = value, ""
		d.LinkType = LinkProperty
	case FieldProject:
		d.Project, d.Property = value, ""
		d.LinkType = LinkProject
	case FieldName:
		d.Name = value
	case FieldCategory:
		d.Category = value
	case FieldPurchaseDate:
		d.PurchaseDate = value
	case FieldPurchasePrice:
		d.PurchasePrice = value
	case FieldWarrantyExpiry:
		d.WarrantyExpiry = value
	case FieldLocation:
		d.Location = value
	case FieldMaintenanceFrequency:
		d.MaintenanceFrequency = value
	case FieldTagID:
		d.TagID = value
	case FieldIsActive:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: is_active %q", ErrInvalidValue, value)
		}
		d.IsActive = b
	case FieldNotes:
		d.Notes = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}

// ErrorKeys lists the error-set keys an update of f invalidates.
func (f Field) ErrorKeys() []string {
	switch f {
	case FieldLinkType, FieldProperty, FieldProject:
		return []string{string(f), KeyProjectProperty}
	}
	return []string{string(f)}
}
