package validators

import (
	"fmt"
	"net/url"
	"strings"
)

// primaryKeyMarker introduces the GTIN in a GS1 Digital Link path.
const primaryKeyMarker = "/01/"

// GS1 application identifiers recognised as key qualifiers.
const (
	AIGTIN   = "01"
	AIBatch  = "10"
	AISerial = "21"
)

// DigitalLink is the parsed form of a GS1 Digital Link URI.
type DigitalLink struct {
	// GTIN is the 14 digit primary key following /01/.
	GTIN string

	// Batch is the value of the /10/ qualifier, if any.
	Batch string

	// Serial is the value of the /21/ qualifier, if any.
	Serial string

	// Attributes holds every application identifier found after the
	// primary key, including batch and serial.
	Attributes map[string]string
}

// ParseDigitalLink extracts the primary key and qualifiers from uri. It fails
// when the /01/ marker is missing or the following value is not a valid
// 14 digit GTIN.
func ParseDigitalLink(uri string) (*DigitalLink, error) {
	idx := strings.Index(uri, primaryKeyMarker)
	if idx < 0 {
		return nil, fmt.Errorf("digital link %q has no %s primary key", uri, primaryKeyMarker)
	}

	rest := uri[idx+len(primaryKeyMarker):]
	if cut := strings.IndexAny(rest, "?#"); cut >= 0 {
		rest = rest[:cut]
	}
	segments := strings.Split(rest, "/")

	gtin := segments[0]
	if len(gtin) != 14 {
		return nil, fmt.Errorf("digital link primary key %q must be 14 characters", gtin)
	}
	if !ValidGTIN(gtin) {
		return nil, fmt.Errorf("digital link primary key %q fails check digit validation", gtin)
	}

	link := &DigitalLink{GTIN: gtin, Attributes: make(map[string]string)}
	for i := 1; i+1 < len(segments); i += 2 {
		value, err := url.PathUnescape(segments[i+1])
		if err != nil {
			value = segments[i+1]
		}
		link.Attributes[segments[i]] = value
	}
	link.Batch = link.Attributes[AIBatch]
	link.Serial = link.Attributes[AISerial]
	return link, nil
}

// ValidDigitalLink reports whether uri carries a /01/ segment followed by a
// valid 14 digit GTIN.
func ValidDigitalLink(uri string) bool {
	_, err := ParseDigitalLink(uri)
	return err == nil
}
