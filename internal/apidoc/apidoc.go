// Package apidoc loads the OpenAPI description of the HTTP transport.
package apidoc

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

//go:embed openapi.yaml
var spec []byte

// Endpoint is a single operation of the API.
type Endpoint struct {
	Method  string
	Path    string
	Summary string
}

// Document is a parsed API description.
type Document struct {
	raw       []byte
	title     string
	version   string
	endpoints []Endpoint
}

// Load parses the embedded API description.
func Load() (*Document, error) {
	return Parse(spec)
}

// Parse parses an OpenAPI 3 document.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("no OpenAPI data provided")
	}

	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing OpenAPI document: %w", err)
	}

	model, errs := doc.BuildV3Model()
	if errs != nil {
		return nil, fmt.Errorf("error building OpenAPI model: %v", errs)
	}
	if model == nil {
		return nil, errors.New("error building OpenAPI model: not an OpenAPI 3 document")
	}

	d := &Document{raw: data}
	if info := model.Model.Info; info != nil {
		d.title = info.Title
		d.version = info.Version
	}
	if model.Model.Paths != nil && model.Model.Paths.PathItems != nil {
		for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
			d.endpoints = append(d.endpoints, endpoints(pair.Key(), pair.Value())...)
		}
	}
	return d, nil
}

func endpoints(path string, item *v3.PathItem) []Endpoint {
	var out []Endpoint
	add := func(method string, op *v3.Operation) {
		if op == nil {
			return
		}
		summary := op.Summary
		if summary == "" {
			summary = op.Description
		}
		out = append(out, Endpoint{Method: method, Path: path, Summary: summary})
	}
	add("GET", item.Get)
	add("POST", item.Post)
	add("PUT", item.Put)
	add("DELETE", item.Delete)
	add("PATCH", item.Patch)
	return out
}

// Title returns the document's info title.
func (d *Document) Title() string { return d.title }

// Version returns the document's info version.
func (d *Document) Version() string { return d.version }

// Endpoints returns every operation in document order.
func (d *Document) Endpoints() []Endpoint {
	return append([]Endpoint(nil), d.endpoints...)
}

// Raw returns the document as it was parsed.
func (d *Document) Raw() []byte {
	return d.raw
}
