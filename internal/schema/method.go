package schema

import (
	"fmt"
	"strings"
)

// Method identifies an extraction backend.
type Method string

const (
	MethodPDFPlumber     Method = "pdfplumber"
	MethodCamelotLattice Method = "camelot-lattice"
	MethodCamelotStream  Method = "camelot-stream"
	MethodTabula         Method = "tabula"
	MethodPoppler        Method = "poppler"
	MethodAdobe          Method = "adobe"
	MethodTextract       Method = "textract"
	MethodDocAI          Method = "docai"
	MethodAzureRead      Method = "azure-read"
	MethodAzureLayout    Method = "azure-layout"
	MethodTesseract      Method = "tesseract"
	MethodLLM            Method = "llm"
	MethodPDFText        Method = "pdftext"
)

// Methods lists every known method in declaration order.
var Methods = []Method{
	MethodPDFPlumber,
	MethodCamelotLattice,
	MethodCamelotStream,
	MethodTabula,
	MethodPoppler,
	MethodAdobe,
	MethodTextract,
	MethodDocAI,
	MethodAzureRead,
	MethodAzureLayout,
	MethodTesseract,
	MethodLLM,
	MethodPDFText,
}

// ParseMethod resolves a method name case-insensitively. "azure" is accepted
// as an alias for azure-layout.
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "azure" {
		return MethodAzureLayout, nil
	}
	for _, m := range Methods {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown extraction method %q", s)
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	for _, k := range Methods {
		if k == m {
			return true
		}
	}
	return false
}

func (m Method) String() string { return string(m) }

// Cloud reports whether the method is a hosted vendor service.
func (m Method) Cloud() bool {
	switch m {
	case MethodAdobe, MethodTextract, MethodDocAI, MethodAzureRead, MethodAzureLayout:
		return true
	}
	return false
}
