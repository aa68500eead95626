// Package payload builds order-sensitive request payloads for the Intacct
// XML gateway.
//
// The gateway rejects or misreads several legacy functions when child
// elements arrive out of order, so payloads cannot be carried in Go maps.
// Object preserves insertion order and marshals elements exactly as they
// were set.
package payload

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Object is an insertion-ordered collection of named values. Values may be
// scalars (string, int, ...), nested *Object, or a List.
type Object struct {
	fields []Field
	index  map[string]int
}

// Field is one named value inside an Object.
type Field struct {
	Name  string
	Value any
}

// List marshals as a sequence of sibling elements, one per item, each named
// Name (for example receiptitems containing repeated lineitem elements).
type List struct {
	Name  string
	Items []*Object
}

// New returns an empty Object.
func New() *Object {
	return &Object{index: make(map[string]int)}
}

// Set appends the value under name, replacing in place if name was already
// set. It returns the Object for chaining.
func (o *Object) Set(name string, value any) *Object {
	if i, ok := o.index[name]; ok {
		o.fields[i].Value = value
		return o
	}
	o.index[name] = len(o.fields)
	o.fields = append(o.fields, Field{Name: name, Value: value})
	return o
}

// Get returns the value set under name.
func (o *Object) Get(name string) (any, bool) {
	i, ok := o.index[name]
	if !ok {
		return nil, false
	}
	return o.fields[i].Value, true
}

// GetString returns the string form of the value set under name, or "" when
// absent.
func (o *Object) GetString(name string) string {
	v, ok := o.Get(name)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Has reports whether name has been set.
func (o *Object) Has(name string) bool {
	_, ok := o.index[name]
	return ok
}

// Len returns the number of fields set.
func (o *Object) Len() int {
	return len(o.fields)
}

// Fields returns the fields in insertion order. The returned slice must not
// be mutated.
func (o *Object) Fields() []Field {
	return o.fields
}

// MarshalXML writes the object's fields as child elements of start, in
// insertion order.
func (o *Object) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, f := range o.fields {
		if err := encodeField(e, f); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func encodeField(e *xml.Encoder, f Field) error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return fmt.Errorf("payload field has empty name")
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}
	switch v := f.Value.(type) {
	case *Object:
		return e.EncodeElement(v, start)
	case List:
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		itemStart := xml.StartElement{Name: xml.Name{Local: v.Name}}
		for _, item := range v.Items {
			if err := e.EncodeElement(item, itemStart); err != nil {
				return err
			}
		}
		return e.EncodeToken(start.End())
	case nil:
		if err := e.EncodeToken(start); err != nil {
			return err
		}
		return e.EncodeToken(start.End())
	default:
		return e.EncodeElement(fmt.Sprint(v), start)
	}
}

// MarshalElement renders the object as one XML element with the given name.
func MarshalElement(name string, o *Object) ([]byte, error) {
	var sb strings.Builder
	e := xml.NewEncoder(&sb)
	if err := e.EncodeElement(o, xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
		return nil, err
	}
	if err := e.Flush(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}
