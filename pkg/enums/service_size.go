package enums

import "fmt"

// ServiceSize identifies the lawn size variant a service is priced for.
type ServiceSize string

const (
	ServiceSizeSmall  ServiceSize = "small"
	ServiceSizeMedium ServiceSize = "medium"
	ServiceSizeLarge  ServiceSize = "large"
)

var validServiceSizes = []ServiceSize{
	ServiceSizeSmall,
	ServiceSizeMedium,
	ServiceSizeLarge,
}

// String implements fmt.Stringer.
func (s ServiceSize) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceSize.
func (s ServiceSize) IsValid() bool {
	for _, candidate := range validServiceSizes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceSize converts raw input into a ServiceSize.
func ParseServiceSize(value string) (ServiceSize, error) {
	for _, candidate := range validServiceSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service size %q", value)
}
