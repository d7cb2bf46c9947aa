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
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/datahubio/dcs/activity"
	"github.com/datahubio/dcs/catalog"
)

// creates a dataset from explicit metadata parameters
func packageCreate(ctx Context, params Params) (any, error) {
	name := stringParam(params, "name")
	if name == "" {
		return nil, validationError("name", "Missing value")
	}

	private := boolParam(params, "private")
	ownerOrg := stringParam(params, "owner_org")
	if err := checkOwnerOrg(private, ownerOrg); err != nil {
		return nil, err
	}

	dataset := catalog.Dataset{
		Id:        uuid.New(),
		Name:      name,
		Title:     stringParam(params, "title"),
		Notes:     stringParam(params, "notes"),
		Url:       stringParam(params, "url"),
		Version:   stringParam(params, "version"),
		State:     catalog.StateActive,
		Private:   private,
		OwnerOrg:  ownerOrg,
		Created:   time.Now(),
		Extras:    extrasParam(params),
		Resources: resourcesParam(params),
	}
	if err := catalog.CreateDataset(dataset); err != nil {
		var exists *catalog.DatasetExistsError
		if errors.As(err, &exists) {
			return nil, validationError("name", "That URL is already in use.")
		}
		return nil, err
	}

	recordActivity(ctx, activity.TypeNewPackage, dataset.Id.String(), dataset.Name)
	return dataset, nil
}

// retrieves a dataset by name or id (the "id" parameter accepts both)
func packageShow(ctx Context, params Params) (any, error) {
	nameOrId := stringParam(params, "id")
	if nameOrId == "" {
		return nil, validationError("id", "Missing value")
	}
	return catalog.FetchDataset(nameOrId)
}

// lists the names of all active datasets
func packageList(ctx Context, params Params) (any, error) {
	return catalog.ListDatasets()
}

// marks a dataset as deleted (its name stays reserved)
func packageDelete(ctx Context, params Params) (any, error) {
	nameOrId := stringParam(params, "id")
	if nameOrId == "" {
		return nil, validationError("id", "Missing value")
	}
	dataset, err := catalog.FetchDataset(nameOrId)
	if err != nil {
		return nil, err
	}
	if err := catalog.DeleteDataset(nameOrId); err != nil {
		return nil, err
	}
	recordActivity(ctx, activity.TypeDeletedPackage, dataset.Id.String(),
		dataset.Name)
	return nil, nil
}

// interprets the "extras" parameter as a list of key/value pairs
func extrasParam(params Params) []catalog.Extra {
	extras := make([]catalog.Extra, 0)
	if entries, ok := params["extras"].([]any); ok {
		for _, entry := range entries {
			if fields, ok := entry.(map[string]any); ok {
				key, _ := fields["key"].(string)
				value, _ := fields["value"].(string)
				if key != "" {
					extras = append(extras, catalog.Extra{Key: key, Value: value})
				}
			}
		}
	}
	return extras
}

// interprets the "resources" parameter as a list of link resources
func resourcesParam(params Params) []catalog.Resource {
	var resources []catalog.Resource
	if entries, ok := params["resources"].([]any); ok {
		for _, entry := range entries {
			if fields, ok := entry.(map[string]any); ok {
				name, _ := fields["name"].(string)
				url, _ := fields["url"].(string)
				format, _ := fields["format"].(string)
				description, _ := fields["description"].(string)
				resources = append(resources, catalog.Resource{
					Id:          uuid.New(),
					Name:        name,
					Url:         url,
					Format:      format,
					Description: description,
				})
			}
		}
	}
	return resources
}

// Checks the private/owner_org parameter combination. A dataset can only be
// private if it belongs to an organization, and the organization must exist.
func checkOwnerOrg(private bool, ownerOrg string) error {
	if ownerOrg == "" {
		if private {
			return validationError("private",
				"Datasets with no organization can't be private.")
		}
		return nil
	}
	if _, err := catalog.FetchOrganization(ownerOrg); err != nil {
		var notFound *catalog.OrganizationNotFoundError
		if errors.As(err, &notFound) {
			return validationError("owner_org",
				"Organization does not exist.")
		}
		return err
	}
	return nil
}

// Writes an event to the activity log. A logging failure shouldn't undo a
// catalog change that has already happened, so it is reported and swallowed.
func recordActivity(ctx Context, activityType, objectId, objectName string) {
	err := activity.Record(activity.Event{
		User:       ctx.User,
		Type:       activityType,
		ObjectId:   objectId,
		ObjectName: objectName,
	})
	if err != nil {
		slog.Warn("Couldn't record activity",
			"type", activityType, "object", objectName, "error", err.Error())
	}
}
