// Copyright (c) 2024 The Data Catalog Service Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package frictionless

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/frictionlessdata/datapackage-go/datapackage"
	"github.com/frictionlessdata/datapackage-go/validator"
)

// the default profile assigned to descriptors that don't declare one
// (https://specs.frictionlessdata.io/profiles/#language)
const DefaultProfile = "data-package"

// a Frictionless data package descriptor as handled by the catalog importer
// (https://specs.frictionlessdata.io/data-package/)
type Descriptor struct {
	// the name of the data package
	Name string
	// a title or one sentence description for the data package
	Title string
	// a Markdown description of the data package
	Description string
	// a URL for a web address related to the data package
	Homepage string
	// a version string identifying the version of the data package
	Version string
	// the profile of this descriptor per the DataPackage profiles specification
	Profile string
	// a list of resources that belong to the package
	Resources []DataResource
	// descriptor fields outside the Data Package schema, retained verbatim so
	// the catalog can stash them as dataset extras
	Extras map[string]json.RawMessage
}

// a Frictionless data resource descriptor
// (https://specs.frictionlessdata.io/data-resource/)
type DataResource struct {
	// the name of the resource
	Name string `json:"name"`
	// a URL or a relative path to the resource's file within a data package
	// bundle (exclusive with Data)
	Path string `json:"path"`
	// inline resource content: a string or any JSON value (exclusive with Path)
	Data json.RawMessage `json:"data"`
	// indicates the format of the resource's file, often used as an extension
	Format string `json:"format"`
	// the mediatype/mimetype of the resource (e.g. "text/csv")
	MediaType string `json:"mediatype"`
	// a description of the resource
	Description string `json:"description"`
	// a title or label for the resource
	Title string `json:"title"`
}

// descriptor fields consumed by the catalog importer; everything else lands
// in Descriptor.Extras
func isKnownField(field string) bool {
	switch field {
	case "name", "title", "description", "homepage", "version", "profile",
		"resources":
		return true
	}
	return false
}

// Parses a Data Package descriptor from JSON byte data. Parsing is lenient:
// schema conformance is checked separately by ValidateDescriptor.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InvalidDescriptorError{Message: err.Error()}
	}

	d := Descriptor{
		Extras: make(map[string]json.RawMessage),
	}
	for field, value := range raw {
		var err error
		switch field {
		case "name":
			err = json.Unmarshal(value, &d.Name)
		case "title":
			err = json.Unmarshal(value, &d.Title)
		case "description":
			err = json.Unmarshal(value, &d.Description)
		case "homepage":
			err = json.Unmarshal(value, &d.Homepage)
		case "version":
			err = json.Unmarshal(value, &d.Version)
		case "profile":
			err = json.Unmarshal(value, &d.Profile)
		case "resources":
			err = json.Unmarshal(value, &d.Resources)
		default:
			d.Extras[field] = value
		}
		if err != nil {
			return nil, &InvalidDescriptorError{
				Message: "field '" + field + "': " + err.Error(),
			}
		}
	}
	return &d, nil
}

// Validates descriptor JSON against the Data Package schema, using in-memory
// copies of the Frictionless profiles so no network access occurs.
func ValidateDescriptor(data []byte) error {
	_, err := datapackage.FromString(validationCopy(data), "datapackage.json",
		validator.InMemoryLoader())
	if err != nil {
		return &InvalidDescriptorError{Message: err.Error()}
	}
	return nil
}

// Prepares a descriptor for schema validation. The schema demands a format
// or mediatype on resources with inline string data, but descriptors in the
// wild routinely omit it, so the validated copy gets a default format. The
// descriptor itself is left alone.
func validationCopy(data []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return string(data)
	}
	resources, ok := raw["resources"].([]any)
	if !ok {
		return string(data)
	}

	patched := false
	for _, entry := range resources {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if _, isString := fields["data"].(string); !isString {
			continue
		}
		if _, found := fields["format"]; found {
			continue
		}
		if _, found := fields["mediatype"]; found {
			continue
		}
		fields["format"] = "txt"
		patched = true
	}
	if !patched {
		return string(data)
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return string(data)
	}
	return string(normalized)
}

// returns true if the given resource path refers to a remote URL rather than
// a file within a data package bundle
func IsRemotePath(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Checks that a resource path stays within its expected containment: it must
// be an http/https URL or a clean relative path that doesn't climb out of the
// bundle. This check runs before any I/O against the path.
func CheckPathSafety(p string) error {
	if p == "" {
		return nil
	}
	if IsRemotePath(p) {
		if _, err := url.Parse(p); err != nil {
			return &UnsafePathError{Path: p}
		}
		return nil
	}
	cleaned := path.Clean(p)
	if path.IsAbs(cleaned) || cleaned == ".." ||
		strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "~") {
		return &UnsafePathError{Path: p}
	}
	return nil
}
