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

package catalog

import (
	"time"

	"github.com/google/uuid"
)

// dataset lifecycle states
const (
	StateActive  = "active"
	StateDeleted = "deleted"
)

// marks resources whose content is stored by the catalog itself
const UrlTypeUpload = "upload"

// an arbitrary key/value metadata pair attached to a dataset outside its
// core schema
type Extra struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// a single file or data reference attached to a dataset
type Resource struct {
	// unique identifier for the resource
	Id uuid.UUID `json:"id"`
	// the name of the resource
	Name string `json:"name"`
	// a source URL, or the URL of a file stored by the catalog
	Url string `json:"url"`
	// "upload" when the content was stored by the catalog, "" for a remote
	// reference
	UrlType string `json:"url_type"`
	// the format of the resource's file (often an extension)
	Format string `json:"format,omitempty"`
	// a description of the resource
	Description string `json:"description,omitempty"`
}

// a dataset: the catalog's unit of metadata grouping one or more resources
type Dataset struct {
	// unique identifier for the dataset
	Id uuid.UUID `json:"id"`
	// the dataset's unique name (also its URL slug)
	Name string `json:"name"`
	// a human-readable title
	Title string `json:"title,omitempty"`
	// a Markdown description
	Notes string `json:"notes,omitempty"`
	// a URL for a related web address
	Url string `json:"url,omitempty"`
	// a version string
	Version string `json:"version,omitempty"`
	// lifecycle state ("active" or "deleted")
	State string `json:"state"`
	// true if the dataset is visible only within its owning organization
	Private bool `json:"private"`
	// reference to the owning organization (if any)
	OwnerOrg string `json:"owner_org,omitempty"`
	// time at which the dataset was created
	Created time.Time `json:"created"`
	// non-schema metadata attached to the dataset
	Extras []Extra `json:"extras"`
	// the dataset's resources, in order
	Resources []Resource `json:"resources"`
}

// an organization that can own datasets
type Organization struct {
	// unique identifier for the organization
	Id uuid.UUID `json:"id"`
	// the organization's unique name
	Name string `json:"name"`
	// a human-readable title
	Title string `json:"title,omitempty"`
	// time at which the organization was created
	Created time.Time `json:"created"`
}
