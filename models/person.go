package models

import (
	"strings"
	"time"
)

// Person represents a researcher, student or any other named individual
// reconciled across the ingestion sources.
type Person struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `json:"name" gorm:"index;not null"`

	// External curriculum identifier (Lattes), when known.
	LattesID string `json:"lattes_id,omitempty" gorm:"column:lattes_id;index"`

	// Semicolon-separated list of known e-mail addresses.
	Emails string `json:"emails,omitempty"`
}

func (Person) TableName() string { return "people" }

// EmailList splits the stored e-mail column into its entries, dropping
// blank pieces.
func (p *Person) EmailList() []string {
	if p.Emails == "" {
		return nil
	}
	var out []string
	for _, email := range strings.Split(p.Emails, ";") {
		if email = strings.TrimSpace(email); email != "" {
			out = append(out, email)
		}
	}
	return out
}
