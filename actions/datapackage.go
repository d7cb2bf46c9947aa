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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datahubio/dcs/activity"
	"github.com/datahubio/dcs/catalog"
	"github.com/datahubio/dcs/config"
	"github.com/datahubio/dcs/fetch"
	"github.com/datahubio/dcs/frictionless"
	"github.com/datahubio/dcs/uploads"
)

// Creates a dataset from a Frictionless data package, given either by the
// "url" of its descriptor (or zip bundle) or by an "upload" holding the same
// content. The flow is
//
//  1. obtain the payload (fetch the URL or read the upload)
//  2. if the payload is a zip archive, pull datapackage.json out of it
//  3. parse the descriptor and check every resource path for safety
//     (before any further I/O occurs)
//  4. validate the descriptor against the Data Package schema
//  5. settle on a dataset name and check the owner organization
//  6. create the dataset record
//  7. materialize the resources in descriptor order, storing archive
//     members and inline data as uploaded files
//  8. on any materialization failure, roll the whole dataset back
func packageCreateFromDataPackage(ctx Context, params Params) (any, error) {
	payload, sourceField, err := dataPackagePayload(params)
	if err != nil {
		return nil, err
	}

	descriptorBytes, archive, err := extractDescriptor(payload)
	if err != nil {
		return nil, validationError(sourceField, err.Error())
	}

	descriptor, err := frictionless.ParseDescriptor(descriptorBytes)
	if err != nil {
		return nil, validationError(sourceField, err.Error())
	}

	// resource paths are vetted before the descriptor is validated, so a
	// malicious path can't trigger any I/O at all
	for _, resource := range descriptor.Resources {
		if err := frictionless.CheckPathSafety(resource.Path); err != nil {
			return nil, validationError("resources", err.Error())
		}
	}

	if err := frictionless.ValidateDescriptor(descriptorBytes); err != nil {
		return nil, validationError(sourceField, err.Error())
	}

	name, err := datasetName(params, descriptor)
	if err != nil {
		return nil, err
	}

	private := boolParam(params, "private")
	ownerOrg := stringParam(params, "owner_org")
	if err := checkOwnerOrg(private, ownerOrg); err != nil {
		return nil, err
	}

	dataset := catalog.Dataset{
		Id:       uuid.New(),
		Name:     name,
		Title:    descriptor.Title,
		Notes:    descriptor.Description,
		Url:      descriptor.Homepage,
		Version:  descriptor.Version,
		State:    catalog.StateActive,
		Private:  private,
		OwnerOrg: ownerOrg,
		Created:  time.Now(),
		Extras:   datasetExtras(descriptor),
	}
	if err := catalog.CreateDataset(dataset); err != nil {
		var exists *catalog.DatasetExistsError
		if errors.As(err, &exists) {
			return nil, validationError("name", "That URL is already in use.")
		}
		return nil, err
	}
	recordActivity(ctx, activity.TypeNewPackage, dataset.Id.String(), dataset.Name)

	// materialize resources one by one, undoing the dataset creation if any
	// of them can't be realized
	resources := make([]catalog.Resource, 0, len(descriptor.Resources))
	for i, dataResource := range descriptor.Resources {
		resource, err := materializeResource(dataset, archive, i, dataResource)
		if err != nil {
			rollbackDataset(ctx, dataset)
			return nil, validationError("resources", err.Error())
		}
		resources = append(resources, resource)
	}

	dataset.Resources = resources
	if err := catalog.UpdateDataset(dataset); err != nil {
		rollbackDataset(ctx, dataset)
		return nil, err
	}
	return dataset, nil
}

// Obtains the data package payload from the "upload" parameter or, failing
// that, by fetching the "url" parameter. Also returns the name of the
// parameter that supplied the payload, so later failures land on the right
// field.
func dataPackagePayload(params Params) ([]byte, string, error) {
	if upload := readerParam(params, "upload"); upload != nil {
		payload, err := io.ReadAll(io.LimitReader(upload, config.Fetch.MaxBytes+1))
		if err != nil {
			return nil, "", validationError("upload", err.Error())
		}
		if int64(len(payload)) > config.Fetch.MaxBytes {
			return nil, "", validationError("upload", "Uploaded file is too large.")
		}
		return payload, "upload", nil
	}

	sourceUrl := stringParam(params, "url")
	if sourceUrl == "" {
		return nil, "", validationError("url", "Missing value")
	}
	payload, err := fetch.Bytes(sourceUrl)
	if err != nil {
		return nil, "", validationError("url", err.Error())
	}
	return payload, "url", nil
}

// Interprets the payload as either descriptor JSON or a zip bundle holding
// datapackage.json. For a bundle, the returned Archive resolves the
// descriptor's resource paths.
func extractDescriptor(payload []byte) ([]byte, *frictionless.Archive, error) {
	if !frictionless.IsArchive(payload) {
		return payload, nil, nil
	}
	archive, err := frictionless.OpenArchive(payload)
	if err != nil {
		return nil, nil, err
	}
	descriptorBytes, err := archive.Descriptor()
	if err != nil {
		return nil, nil, err
	}
	return descriptorBytes, archive, nil
}

// Settles on a name for the new dataset. An explicitly requested name must
// not be in use; an omitted name is derived from the descriptor's name, made
// unique if needed.
func datasetName(params Params,
	descriptor *frictionless.Descriptor) (string, error) {

	if name := stringParam(params, "name"); name != "" {
		if _, err := catalog.FetchDataset(name); err == nil {
			return "", validationError("name", "That URL is already in use.")
		}
		return name, nil
	}

	base := slugify(descriptor.Name)
	if base == "" {
		base = "unnamed-dataset"
	}
	return catalog.UniqueDatasetName(base)
}

// reduces a descriptor name to characters allowed in dataset names
func slugify(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
	return strings.Trim(slug, "-")
}

// Derives the extras for a dataset built from the given descriptor: the
// descriptor's profile, plus every descriptor field outside the Data Package
// schema, carried verbatim.
func datasetExtras(descriptor *frictionless.Descriptor) []catalog.Extra {
	profile := descriptor.Profile
	if profile == "" {
		profile = frictionless.DefaultProfile
	}
	extras := []catalog.Extra{
		{Key: "profile", Value: profile},
	}

	keys := make([]string, 0, len(descriptor.Extras))
	for key := range descriptor.Extras {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		value := descriptor.Extras[key]
		// a JSON string is stored unquoted; any other value keeps its JSON text
		var stringValue string
		if err := json.Unmarshal(value, &stringValue); err != nil {
			stringValue = string(value)
		}
		extras = append(extras, catalog.Extra{Key: key, Value: stringValue})
	}
	return extras
}

// Turns the index-th resource of a descriptor into a catalog resource. Remote
// paths are linked as they are; archive members and inline data are stored by
// the catalog and served from its own URL space.
func materializeResource(dataset catalog.Dataset,
	archive *frictionless.Archive, index int,
	dataResource frictionless.DataResource) (catalog.Resource, error) {

	resource := catalog.Resource{
		Id:          uuid.New(),
		Name:        dataResource.Name,
		Format:      dataResource.Format,
		Description: dataResource.Description,
	}

	switch {
	case frictionless.IsRemotePath(dataResource.Path):
		resource.Url = dataResource.Path
		if resource.Name == "" {
			resource.Name = path.Base(dataResource.Path)
		}

	case dataResource.Path != "":
		if archive == nil {
			return catalog.Resource{}, fmt.Errorf(
				"resource %d: path '%s' refers to a bundled file, but no bundle was given",
				index, dataResource.Path)
		}
		content, err := archive.ReadMember(dataResource.Path)
		if err != nil {
			return catalog.Resource{}, fmt.Errorf("resource %d: %s", index,
				err.Error())
		}
		filename := path.Base(dataResource.Path)
		url, err := uploads.Save(dataset.Id, dataset.Name, filename,
			bytes.NewReader(content))
		if err != nil {
			return catalog.Resource{}, fmt.Errorf("resource %d: %s", index,
				err.Error())
		}
		resource.Url = url
		resource.UrlType = catalog.UrlTypeUpload
		if resource.Name == "" {
			resource.Name = filename
		}

	case len(dataResource.Data) > 0:
		content, filename := inlineContent(index, dataResource)
		url, err := uploads.Save(dataset.Id, dataset.Name, filename,
			bytes.NewReader(content))
		if err != nil {
			return catalog.Resource{}, fmt.Errorf("resource %d: %s", index,
				err.Error())
		}
		resource.Url = url
		resource.UrlType = catalog.UrlTypeUpload
		if resource.Name == "" {
			resource.Name = filename
		}

	default:
		return catalog.Resource{}, fmt.Errorf(
			"resource %d: needs a path or inline data", index)
	}

	if resource.Format == "" && resource.UrlType == catalog.UrlTypeUpload {
		resource.Format = strings.TrimPrefix(path.Ext(resource.Url), ".")
	}
	return resource, nil
}

// Renders a resource's inline data as file content with a filename. A JSON
// string is stored as its raw text; any other JSON value is stored as JSON.
func inlineContent(index int,
	dataResource frictionless.DataResource) ([]byte, string) {

	filename := dataResource.Name
	if filename == "" {
		filename = fmt.Sprintf("resource-%d", index)
	}

	var stringValue string
	if err := json.Unmarshal(dataResource.Data, &stringValue); err == nil {
		return []byte(stringValue), filename
	}
	return []byte(dataResource.Data), filename + ".json"
}

// Undoes the creation of a dataset whose resources couldn't all be
// materialized, removing any stored files along with the record itself so
// the dataset's name becomes available again.
func rollbackDataset(ctx Context, dataset catalog.Dataset) {
	if err := uploads.RemoveAll(dataset.Id); err != nil {
		slog.Warn("Couldn't remove uploaded files during rollback",
			"dataset", dataset.Name, "error", err.Error())
	}
	if err := catalog.PurgeDataset(dataset.Name); err != nil {
		slog.Warn("Couldn't remove dataset record during rollback",
			"dataset", dataset.Name, "error", err.Error())
	}
	recordActivity(ctx, activity.TypeDeletedPackage, dataset.Id.String(),
		dataset.Name)
}
