package models

import (
	"fmt"
	"strings"
	"time"
)

// Company is one row of the listed-company directory. Records are loaded
// from the catalog CSV and indexed for lookup; they carry no state of
// their own beyond the load timestamps.
type Company struct {
	ID        string    `json:"id"` // normalized primary symbol, unique per company
	Name      string    `json:"name"`
	NSECode   string    `json:"nse_code,omitempty"`
	BSECode   string    `json:"bse_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Symbol returns the identifier used on the disclosure source: the NSE
// code when present, otherwise the BSE code.
func (c *Company) Symbol() string {
	if c.NSECode != "" {
		return c.NSECode
	}
	return c.BSECode
}

// Validate checks that the record is usable as a lookup target
func (c *Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("company name is required")
	}
	if c.NSECode == "" && c.BSECode == "" {
		return fmt.Errorf("company %q has no exchange code", c.Name)
	}
	return nil
}
