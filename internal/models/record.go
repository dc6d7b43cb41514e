package models

import "time"

// Record holds the metadata of a medical record. The record's binary
// content lives in external blob storage; this service only decides who
// may see which record identifiers.
type Record struct {
	ID         string `gorm:"primaryKey"`
	PatientID  string `gorm:"not null;index"`
	Title      string `gorm:"not null"`
	RecordType string `gorm:"index"` // e.g. lab_report, prescription, imaging
	Deleted    bool   `gorm:"not null;default:false;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
