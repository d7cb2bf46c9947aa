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

package actions

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datahubio/dcs/catalog"
	"github.com/datahubio/dcs/dcstest"
	"github.com/datahubio/dcs/uploads"
)

// runs the data package import tests serially (sharing the catalog store
// opened by TestMain)
func TestDataPackageRunner(t *testing.T) {
	tester := DataPackageTests{Test: t}
	tester.TestNoSourceFails()
	tester.TestEmptyDescriptorFails()
	tester.TestUnsafePathFailsBeforeFetching()
	tester.TestCreateFromDescriptorUrl()
	tester.TestDerivedNamesAreUnique()
	tester.TestExplicitNameInUseFails()
	tester.TestCreateFromZipUpload()
	tester.TestInlineDataResources()
	tester.TestInlineStringWithoutFormat()
	tester.TestCorruptBundleFailsOnItsSourceField()
	tester.TestMissingZipMemberRollsBack()
	tester.TestPrivateDatasetWithOrganization()
}

type DataPackageTests struct{ Test *testing.T }

// a descriptor with a remote resource and a field outside the schema
const windmillsDescriptor = `{
	"name": "lots-of-windmills",
	"title": "Lots of Windmills",
	"description": "A dataset about windmills.",
	"homepage": "https://windmills.example.com",
	"version": "1.0.0",
	"some_extra_data": {"overall_quality": "pretty good"},
	"resources": [
		{"name": "heights", "path": "https://example.com/heights.csv", "format": "csv"}
	]
}`

// serves the given payload at every path, counting requests
func servePayload(payload []byte) (*httptest.Server, *int) {
	requests := new(int)
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			*requests++
			w.Write(payload)
		}))
	return server, requests
}

// finds the extra with the given key ("" if absent)
func findExtra(dataset catalog.Dataset, key string) string {
	for _, extra := range dataset.Extras {
		if extra.Key == key {
			return extra.Value
		}
	}
	return ""
}

func (t *DataPackageTests) TestNoSourceFails() {
	assert := assert.New(t.Test)

	_, err := Call("package_create_from_datapackage", Context{}, Params{})
	assert.NotNil(err)
	var validation *ValidationError
	assert.ErrorAs(err, &validation)
	assert.Equal("Missing value", validation.Errors["url"])
}

func (t *DataPackageTests) TestEmptyDescriptorFails() {
	assert := assert.New(t.Test)

	server, _ := servePayload([]byte(`{}`))
	defer server.Close()

	_, err := Call("package_create_from_datapackage", Context{}, Params{
		"url": server.URL + "/datapackage.json",
	})
	assert.NotNil(err)
	var validation *ValidationError
	assert.ErrorAs(err, &validation)
}

func (t *DataPackageTests) TestUnsafePathFailsBeforeFetching() {
	assert := assert.New(t.Test)

	// a descriptor that names a sensitive file outside its bundle
	descriptor := `{
		"name": "sneaky",
		"resources": [
			{"name": "shadow", "path": "/etc/shadow"},
			{"name": "heights", "path": "https://example.com/heights.csv"}
		]
	}`
	server, requests := servePayload([]byte(descriptor))
	defer server.Close()

	before, err := catalog.ListDatasets()
	assert.Nil(err)

	_, err = Call("package_create_from_datapackage", Context{}, Params{
		"url": server.URL + "/datapackage.json",
	})
	assert.NotNil(err)
	var validation *ValidationError
	assert.ErrorAs(err, &validation)
	assert.Contains(validation.Errors, "resources")

	// only the descriptor itself was fetched, and nothing was created
	assert.Equal(1, *requests)
	after, err := catalog.ListDatasets()
	assert.Nil(err)
	assert.Equal(before, after)
}

func (t *DataPackageTests) TestCreateFromDescriptorUrl() {
	assert := assert.New(t.Test)

	server, _ := servePayload([]byte(windmillsDescriptor))
	defer server.Close()

	result, err := Call("package_create_from_datapackage",
		Context{User: "josiah"}, Params{
			"url": server.URL + "/datapackage.json",
		})
	assert.Nil(err)
	dataset := result.(catalog.Dataset)

	// dataset metadata comes from the descriptor
	assert.Equal("lots-of-windmills", dataset.Name)
	assert.Equal("Lots of Windmills", dataset.Title)
	assert.Equal("A dataset about windmills.", dataset.Notes)
	assert.Equal("https://windmills.example.com", dataset.Url)
	assert.Equal("1.0.0", dataset.Version)
	assert.Equal(catalog.StateActive, dataset.State)

	// non-schema descriptor fields become extras alongside the profile
	assert.Equal("data-package", findExtra(dataset, "profile"))
	assert.JSONEq(`{"overall_quality": "pretty good"}`,
		findExtra(dataset, "some_extra_data"))

	// the remote resource is linked, not stored
	assert.Equal(1, len(dataset.Resources))
	assert.Equal("heights", dataset.Resources[0].Name)
	assert.Equal("https://example.com/heights.csv", dataset.Resources[0].Url)
	assert.Equal("", dataset.Resources[0].UrlType)
	assert.Equal("csv", dataset.Resources[0].Format)

	// the stored record matches what the action returned
	stored, err := catalog.FetchDataset("lots-of-windmills")
	assert.Nil(err)
	assert.Equal(dataset.Resources, stored.Resources)
}

func (t *DataPackageTests) TestDerivedNamesAreUnique() {
	assert := assert.New(t.Test)

	server, _ := servePayload([]byte(windmillsDescriptor))
	defer server.Close()

	// importing the same package again gets a suffixed name
	result, err := Call("package_create_from_datapackage", Context{}, Params{
		"url": server.URL + "/datapackage.json",
	})
	assert.Nil(err)
	assert.Equal("lots-of-windmills-1", result.(catalog.Dataset).Name)
}

func (t *DataPackageTests) TestExplicitNameInUseFails() {
	assert := assert.New(t.Test)

	server, _ := servePayload([]byte(windmillsDescriptor))
	defer server.Close()

	_, err := Call("package_create_from_datapackage", Context{}, Params{
		"url":  server.URL + "/datapackage.json",
		"name": "lots-of-windmills",
	})
	assert.NotNil(err)
	var validation *ValidationError
	assert.ErrorAs(err, &validation)
	assert.Equal("That URL is already in use.", validation.Errors["name"])
}

func (t *DataPackageTests) TestCreateFromZipUpload() {
	assert := assert.New(t.Test)

	descriptor := []byte(`{
		"name": "bundled-windmills",
		"resources": [
			{"name": "windmills", "path": "data/windmills.csv", "format": "csv"}
		]
	}`)
	bundle := dcstest.DataPackageZip(descriptor, map[string][]byte{
		"data/windmills.csv": []byte("height,blades\n20,4\n"),
	})

	result, err := Call("package_create_from_datapackage",
		Context{User: "josiah"}, Params{
			"upload": bundle,
		})
	assert.Nil(err)
	dataset := result.(catalog.Dataset)
	assert.Equal("bundled-windmills", dataset.Name)

	// the bundled file was stored by the catalog
	assert.Equal(1, len(dataset.Resources))
	resource := dataset.Resources[0]
	assert.Equal(catalog.UrlTypeUpload, resource.UrlType)
	assert.Equal(uploads.ResourceUrl("bundled-windmills", "windmills.csv"),
		resource.Url)
	content, err := os.ReadFile(uploads.LocalPath(dataset.Id, "windmills.csv"))
	assert.Nil(err)
	assert.Equal("height,blades\n20,4\n", string(content))
}

func (t *DataPackageTests) TestInlineDataResources() {
	assert := assert.New(t.Test)

	descriptor := `{
		"name": "inline-windmills",
		"resources": [
			{"name": "notes", "data": "tall ones spin faster", "format": "txt"},
			{"name": "stats", "data": {"count": 42}, "format": "json"}
		]
	}`
	server, _ := servePayload([]byte(descriptor))
	defer server.Close()

	result, err := Call("package_create_from_datapackage", Context{}, Params{
		"url": server.URL + "/datapackage.json",
	})
	assert.Nil(err)
	dataset := result.(catalog.Dataset)
	assert.Equal(2, len(dataset.Resources))

	// a string is stored as its raw text under the resource's name
	assert.Equal(catalog.UrlTypeUpload, dataset.Resources[0].UrlType)
	content, err := os.ReadFile(uploads.LocalPath(dataset.Id, "notes"))
	assert.Nil(err)
	assert.Equal("tall ones spin faster", string(content))

	// any other JSON value is stored as JSON
	assert.Equal(catalog.UrlTypeUpload, dataset.Resources[1].UrlType)
	content, err = os.ReadFile(uploads.LocalPath(dataset.Id, "stats.json"))
	assert.Nil(err)
	assert.JSONEq(`{"count": 42}`, string(content))
}

func (t *DataPackageTests) TestInlineStringWithoutFormat() {
	assert := assert.New(t.Test)

	// inline string data with no declared format or mediatype, the way
	// real-world descriptors arrive
	descriptor := `{
		"name": "plain-notes",
		"resources": [
			{"name": "the-resource", "data": "inline data"}
		]
	}`
	server, _ := servePayload([]byte(descriptor))
	defer server.Close()

	result, err := Call("package_create_from_datapackage", Context{}, Params{
		"url": server.URL + "/datapackage.json",
	})
	assert.Nil(err)
	dataset := result.(catalog.Dataset)

	assert.Equal(1, len(dataset.Resources))
	resource := dataset.Resources[0]
	assert.Equal(catalog.UrlTypeUpload, resource.UrlType)
	assert.Contains(resource.Url, "the-resource")
	content, err := os.ReadFile(uploads.LocalPath(dataset.Id, "the-resource"))
	assert.Nil(err)
	assert.Equal("inline data", string(content))
}

func (t *DataPackageTests) TestCorruptBundleFailsOnItsSourceField() {
	assert := assert.New(t.Test)

	// a payload that begins with the zip magic but isn't a zip archive
	bundle := []byte("PK\x03\x04 this is no archive at all")

	_, err := Call("package_create_from_datapackage", Context{}, Params{
		"upload": bundle,
	})
	assert.NotNil(err)
	var validation *ValidationError
	assert.ErrorAs(err, &validation)
	assert.Contains(validation.Errors, "upload")

	// the same failure by URL is reported against the url parameter
	server, _ := servePayload(bundle)
	defer server.Close()

	_, err = Call("package_create_from_datapackage", Context{}, Params{
		"url": server.URL + "/datapackage.zip",
	})
	assert.NotNil(err)
	assert.ErrorAs(err, &validation)
	assert.Contains(validation.Errors, "url")
}

func (t *DataPackageTests) TestMissingZipMemberRollsBack() {
	assert := assert.New(t.Test)

	descriptor := []byte(`{
		"name": "broken-windmills",
		"resources": [
			{"name": "windmills", "path": "data/windmills.csv", "format": "csv"},
			{"name": "missing", "path": "data/missing.csv", "format": "csv"}
		]
	}`)
	bundle := dcstest.DataPackageZip(descriptor, map[string][]byte{
		"data/windmills.csv": []byte("height,blades\n20,4\n"),
	})

	before, err := catalog.ListDatasets()
	assert.Nil(err)

	_, err = Call("package_create_from_datapackage", Context{}, Params{
		"upload": bundle,
	})
	assert.NotNil(err)
	var validation *ValidationError
	assert.ErrorAs(err, &validation)
	assert.Contains(validation.Errors, "resources")

	// the dataset is gone without a trace and its name is free again
	after, err := catalog.ListDatasets()
	assert.Nil(err)
	assert.Equal(before, after)
	_, err = catalog.FetchDataset("broken-windmills")
	assert.NotNil(err)
	assert.IsType(&catalog.DatasetNotFoundError{}, err)
}

func (t *DataPackageTests) TestPrivateDatasetWithOrganization() {
	assert := assert.New(t.Test)

	_, err := Call("organization_create", Context{User: "josiah"}, Params{
		"name": "private-windmill-owners",
	})
	assert.Nil(err)

	server, _ := servePayload([]byte(windmillsDescriptor))
	defer server.Close()

	result, err := Call("package_create_from_datapackage",
		Context{User: "josiah"}, Params{
			"url":       server.URL + "/datapackage.json",
			"name":      "members-only-windmills",
			"private":   "true",
			"owner_org": "private-windmill-owners",
		})
	assert.Nil(err)
	dataset := result.(catalog.Dataset)
	assert.True(dataset.Private)
	assert.Equal("private-windmill-owners", dataset.OwnerOrg)
}
