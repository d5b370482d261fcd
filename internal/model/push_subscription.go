package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Companies []SubscribedCompany `gorm:"foreignKey:SubscriptionEndpoint;constraint:OnDelete:CASCADE"`
}

// SubscribedCompany maps a subscription to a company whose asset events it receives.
type SubscribedCompany struct {
	SubscriptionEndpoint string `gorm:"primaryKey"`
	CompanyID            string `gorm:"primaryKey;size:64;index"`
}
