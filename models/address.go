package models

import (
	"fmt"
	"strings"
)

// LocalCountryCode is the ISO-3166 code deliveries are priced as local for
const LocalCountryCode = "PH"

// Address is a structured delivery address
type Address struct {
	Line1       string `json:"line1"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `gorm:"size:2" json:"country_code" binding:"omitempty,len=2"`
}

// IsLocal reports whether the address is inside the home delivery zone
func (a Address) IsLocal() bool {
	return strings.EqualFold(a.CountryCode, LocalCountryCode)
}

// IsEmpty reports whether no address has been provided
func (a Address) IsEmpty() bool {
	return a.Line1 == "" && a.City == "" && a.CountryCode == ""
}

// String renders the address on one line for documents
func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.Line1, a.City, a.Province, a.PostalCode, strings.ToUpper(a.CountryCode)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Normalize upper-cases the country code and trims whitespace
func (a *Address) Normalize() {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.Province = strings.TrimSpace(a.Province)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.CountryCode = strings.ToUpper(strings.TrimSpace(a.CountryCode))
}

// Validate checks that an address can be delivered to
func (a Address) Validate() error {
	if a.Line1 == "" || a.City == "" {
		return fmt.Errorf("address line1 and city are required")
	}
	if len(a.CountryCode) != 2 {
		return fmt.Errorf("country_code must be a two-letter ISO code")
	}
	return nil
}
