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
	"time"

	"github.com/google/uuid"

	"github.com/datahubio/dcs/activity"
	"github.com/datahubio/dcs/catalog"
)

// creates an organization that can own datasets
func organizationCreate(ctx Context, params Params) (any, error) {
	name := stringParam(params, "name")
	if name == "" {
		return nil, validationError("name", "Missing value")
	}

	org := catalog.Organization{
		Id:      uuid.New(),
		Name:    name,
		Title:   stringParam(params, "title"),
		Created: time.Now(),
	}
	if err := catalog.CreateOrganization(org); err != nil {
		var exists *catalog.OrganizationExistsError
		if errors.As(err, &exists) {
			return nil, validationError("name", "That name is already in use.")
		}
		return nil, err
	}

	recordActivity(ctx, activity.TypeNewOrganization, org.Id.String(), org.Name)
	return org, nil
}

// retrieves an organization by name or id
func organizationShow(ctx Context, params Params) (any, error) {
	nameOrId := stringParam(params, "id")
	if nameOrId == "" {
		return nil, validationError("id", "Missing value")
	}
	return catalog.FetchOrganization(nameOrId)
}
