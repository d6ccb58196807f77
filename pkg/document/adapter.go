package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a serialization format for raw documents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatAuto Format = ""
)

// MalformedDocumentError is returned when input cannot be decoded into an
// object.
type MalformedDocumentError struct {
	Format Format
	Cause  error
}

// Error implements the error interface.
func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed %s document: %v", e.Format, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *MalformedDocumentError) Unwrap() error {
	return e.Cause
}

// Decode parses data into a raw object. With FormatAuto, input starting with
// '{' is read as JSON and anything else as YAML.
func Decode(data []byte, format Format) (map[string]any, error) {
	if format == FormatAuto {
		format = FormatYAML
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	var raw any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &MalformedDocumentError{Format: format, Cause: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &MalformedDocumentError{Format: format, Cause: err}
		}
	default:
		return nil, &MalformedDocumentError{Format: format, Cause: fmt.Errorf("unsupported format")}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &MalformedDocumentError{Format: format, Cause: fmt.Errorf("top level is %s, not an object", typeName(raw))}
	}
	return obj, nil
}

// Parse decodes and adapts data in one step.
func Parse(data []byte, format Format) (*Document, error) {
	return ParseAs(data, format, KindUnknown)
}

// ParseAs is Parse with a fallback kind for documents of unknown shape.
func ParseAs(data []byte, format Format, fallback Kind) (*Document, error) {
	raw, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return AdaptAs(raw, fallback), nil
}

// DetectKind identifies the document shape from its top-level keys.
func DetectKind(raw map[string]any) Kind {
	if _, ok := raw["due_diligence_statement"]; ok {
		return KindStatement
	}
	if _, ok := raw["suppliers"]; ok {
		return KindSupplyChain
	}
	if _, ok := raw["risk_mitigation_measures"]; ok {
		return KindSupplyChain
	}
	return KindUnknown
}

// Adapt converts a raw object into a typed Document. It never fails; missing
// and mistyped fields are recorded on the individual Field values.
func Adapt(raw map[string]any) *Document {
	return AdaptAs(raw, KindUnknown)
}

// AdaptAs is Adapt with a fallback kind used when DetectKind cannot tell the
// shape from the top-level keys.
func AdaptAs(raw map[string]any, fallback Kind) *Document {
	kind := DetectKind(raw)
	if kind == KindUnknown {
		kind = fallback
	}
	doc := &Document{Kind: kind, Raw: raw}
	root := object{path: "", m: raw}

	switch doc.Kind {
	case KindStatement:
		doc.Statement = &StatementSubmission{
			Statement:      adaptStatement(root),
			RiskMitigation: adaptMitigations(root, "risk_mitigation"),
			ValidationDate: root.str("validation_date"),
		}
	case KindSupplyChain:
		doc.SupplyChain = &SupplyChainData{
			Suppliers:              adaptSuppliers(root),
			Products:               adaptSupplyChainProducts(root),
			RiskMitigationMeasures: adaptMitigations(root, "risk_mitigation_measures"),
			AssessmentDate:         root.str("assessment_date"),
		}
	}
	return doc
}

func adaptStatement(root object) Field[*DueDiligenceStatement] {
	obj, f := root.object("due_diligence_statement")
	if !f.Present {
		return Field[*DueDiligenceStatement]{Err: f.Err}
	}

	st := &DueDiligenceStatement{
		ReferenceNumber:        obj.str("reference_number"),
		VerificationNumber:     obj.str("verification_number"),
		ValidFrom:              obj.str("valid_from"),
		ValidUntil:             obj.str("valid_until"),
		InformationProviderGLN: obj.str("information_provider_gln"),
		Keys:                   obj.keys(),
	}

	items, lf := obj.list("products")
	if !lf.Present {
		st.Products = Field[[]Product]{Err: lf.Err}
	} else {
		products := make([]Product, 0, len(items))
		for i, item := range items {
			p := Product{Index: i}
			po, ok := item.asObject()
			if !ok {
				err := &FieldTypeError{Path: item.path, Want: "object", Got: typeName(item.value)}
				p.GTIN = Field[string]{Err: err}
				p.BatchNumber = Field[string]{Err: err}
				p.SerialNumber = Field[string]{Err: err}
				p.DigitalLink = Field[string]{Err: err}
				p.Keys = Keys{}
			} else {
				p.GTIN = po.str("gtin")
				p.BatchNumber = po.str("batch_number")
				p.SerialNumber = po.str("serial_number")
				p.DigitalLink = po.str("digital_link")
				p.Keys = po.keys()
			}
			products = append(products, p)
		}
		st.Products = Some(products)
	}

	return Some(st)
}

func adaptMitigations(root object, key string) Field[[]MitigationMeasure] {
	items, f := root.list(key)
	if !f.Present {
		return Field[[]MitigationMeasure]{Err: f.Err}
	}

	measures := make([]MitigationMeasure, 0, len(items))
	for i, item := range items {
		m := MitigationMeasure{Index: i}
		switch v := item.value.(type) {
		case string:
			// Bare strings are accepted as the measure type.
			m.Type = Some(v)
			m.Description = Absent[string](item.path + ".description")
			m.SupplierID = Absent[string](item.path + ".supplier_id")
		default:
			mo, ok := item.asObject()
			if !ok {
				m.Type = mistyped[string](item.path, "object", item.value)
				m.Description = m.Type
				m.SupplierID = m.Type
				break
			}
			m.Type = mo.str("type")
			m.Description = mo.str("description")
			m.SupplierID = mo.str("supplier_id")
		}
		measures = append(measures, m)
	}
	return Some(measures)
}

func adaptSuppliers(root object) Field[[]Supplier] {
	items, f := root.list("suppliers")
	if !f.Present {
		return Field[[]Supplier]{Err: f.Err}
	}

	suppliers := make([]Supplier, 0, len(items))
	for i, item := range items {
		s := Supplier{Index: i, Keys: Keys{}}
		so, ok := item.asObject()
		if !ok {
			err := &FieldTypeError{Path: item.path, Want: "object", Got: typeName(item.value)}
			s.ID = Field[string]{Err: err}
			s.Country = Field[string]{Err: err}
			s.TransparencyIndicators = Field[map[string]bool]{Err: err}
			s.SupplyChainDepth = Field[int]{Err: err}
		} else {
			s.ID = so.str("id")
			s.Country = so.str("country")
			s.TransparencyIndicators = so.flags("transparency_indicators")
			s.SupplyChainDepth = so.depth("supply_chain_depth")
			s.Keys = so.keys()
		}
		suppliers = append(suppliers, s)
	}
	return Some(suppliers)
}

func adaptSupplyChainProducts(root object) Field[[]SupplyChainProduct] {
	items, f := root.list("products")
	if !f.Present {
		return Field[[]SupplyChainProduct]{Err: f.Err}
	}

	products := make([]SupplyChainProduct, 0, len(items))
	for i, item := range items {
		p := SupplyChainProduct{Index: i}
		po, ok := item.asObject()
		if !ok {
			p.GTIN = mistyped[string](item.path, "object", item.value)
			p.Commodity = p.GTIN
		} else {
			p.GTIN = po.str("gtin")
			p.Commodity = po.str("commodity")
		}
		products = append(products, p)
	}
	return Some(products)
}

// object is a raw JSON object together with its path for error messages.
type object struct {
	path string
	m    map[string]any
}

// element is one raw list element.
type element struct {
	path  string
	value any
}

func (e element) asObject() (object, bool) {
	m, ok := e.value.(map[string]any)
	return object{path: e.path, m: m}, ok
}

func (o object) child(key string) string {
	if o.path == "" {
		return key
	}
	return o.path + "." + key
}

func (o object) lookup(key string) (any, bool) {
	v, ok := o.m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (o object) keys() Keys {
	keys := make(Keys, len(o.m))
	for k, v := range o.m {
		if v != nil {
			keys[k] = struct{}{}
		}
	}
	return keys
}

func (o object) str(key string) Field[string] {
	path := o.child(key)
	v, ok := o.lookup(key)
	if !ok {
		return Absent[string](path)
	}
	s, ok := v.(string)
	if !ok {
		return mistyped[string](path, "string", v)
	}
	return Some(s)
}

func (o object) object(key string) (object, Field[struct{}]) {
	path := o.child(key)
	v, ok := o.lookup(key)
	if !ok {
		return object{}, Absent[struct{}](path)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return object{}, mistyped[struct{}](path, "object", v)
	}
	return object{path: path, m: m}, Some(struct{}{})
}

func (o object) list(key string) ([]element, Field[struct{}]) {
	path := o.child(key)
	v, ok := o.lookup(key)
	if !ok {
		return nil, Absent[struct{}](path)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, mistyped[struct{}](path, "array", v)
	}
	out := make([]element, len(items))
	for i, item := range items {
		out[i] = element{path: fmt.Sprintf("%s[%d]", path, i), value: item}
	}
	return out, Some(struct{}{})
}

// flags reads a mapping of indicator name to boolean. Non-boolean entries are
// ignored rather than failing the whole mapping.
func (o object) flags(key string) Field[map[string]bool] {
	path := o.child(key)
	v, ok := o.lookup(key)
	if !ok {
		return Absent[map[string]bool](path)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return mistyped[map[string]bool](path, "object", v)
	}
	out := make(map[string]bool, len(m))
	for name, raw := range m {
		if b, ok := raw.(bool); ok {
			out[name] = b
		}
	}
	return Some(out)
}

// depth reads a non-negative integer given as a number or numeric string.
func (o object) depth(key string) Field[int] {
	path := o.child(key)
	v, ok := o.lookup(key)
	if !ok {
		return Absent[int](path)
	}

	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint64:
		n = float64(x)
	case float64:
		n = x
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return mistyped[int](path, "non-negative integer", v)
		}
		n = float64(parsed)
	default:
		return mistyped[int](path, "non-negative integer", v)
	}

	if n < 0 || n > math.MaxInt32 || n != math.Trunc(n) {
		return mistyped[int](path, "non-negative integer", v)
	}
	return Some(int(n))
}
