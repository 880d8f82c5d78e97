package model

import "time"

// VendorSource indicates how a vendor mapping was created.
type VendorSource string

const (
	// SourceAuto indicates the mapping was learned from a bulk reassignment.
	SourceAuto VendorSource = "AUTO"
	// SourceUser indicates the mapping was entered directly by the user.
	SourceUser VendorSource = "USER"
)

// Vendor maps a description to a category label.
type Vendor struct {
	LastUpdated time.Time
	Name        string
	Category    string
	Source      VendorSource
	UseCount    int
	IsRegex     bool
}
