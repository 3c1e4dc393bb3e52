package convert

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

// WritePlaceholder synthesizes a one-page PDF carrying message, substituted
// whenever a real conversion fails or the type is unsupported.
func WritePlaceholder(path, message string) error {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Text(100, 92, message)
	if err := doc.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write placeholder: %w", err)
	}
	return nil
}

func unsupportedMessage(name string) string {
	return fmt.Sprintf("%s: unsupported type; included as placeholder.", name)
}

// FailedMessage is the placeholder text for a file whose conversion (or
// retrieval) failed.
func FailedMessage(name string) string {
	return fmt.Sprintf("%s: conversion failed; included as placeholder.", name)
}
