// Package core provides the building blocks of the beanie ODM.
// This file defines the result model of collection inspection.
package core

// InspectionStatus is the overall outcome of a collection inspection.
type InspectionStatus string

const (
	// InspectionOK means every stored document conforms to the schema.
	InspectionOK InspectionStatus = "OK"
	// InspectionFail means at least one stored document violates the
	// schema.
	InspectionFail InspectionStatus = "FAIL"
)

// InspectionError pairs the identity of a non-conforming stored
// document with the validation message.
type InspectionError struct {
	DocumentID any
	Error      string
}

// InspectionResult is the outcome of validating every stored document
// of a collection against its schema. Errors keep store order.
type InspectionResult struct {
	Status InspectionStatus
	Errors []InspectionError
}

// addError records a violation and flips the status to FAIL.
func (r *InspectionResult) addError(id any, message string) {
	r.Status = InspectionFail
	r.Errors = append(r.Errors, InspectionError{DocumentID: id, Error: message})
}
