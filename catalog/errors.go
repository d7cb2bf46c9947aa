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
	"fmt"
)

// indicates that the catalog store is not open and cannot respond to the
// given request
type NotOpenError struct {
}

func (e NotOpenError) Error() string {
	return "The catalog store is not open for reading or writing."
}

// indicates that the catalog store could not be opened
type CantOpenError struct {
	Message string
}

func (e CantOpenError) Error() string {
	return fmt.Sprintf("Could not open the catalog store: %s", e.Message)
}

// indicates that the catalog store could not be closed
type CantCloseError struct {
	Message string
}

func (e CantCloseError) Error() string {
	return fmt.Sprintf("Could not close the catalog store: %s", e.Message)
}

// indicates that no dataset exists with the given name or id
type DatasetNotFoundError struct {
	Name string
}

func (e DatasetNotFoundError) Error() string {
	return fmt.Sprintf("No dataset was found with name or id '%s'", e.Name)
}

// indicates that a dataset name is already in use (by a live or deleted
// dataset)
type DatasetExistsError struct {
	Name string
}

func (e DatasetExistsError) Error() string {
	return fmt.Sprintf("The dataset name '%s' is already in use", e.Name)
}

// indicates that no organization exists with the given name or id
type OrganizationNotFoundError struct {
	Name string
}

func (e OrganizationNotFoundError) Error() string {
	return fmt.Sprintf("No organization was found with name or id '%s'", e.Name)
}

// indicates that an organization name is already in use
type OrganizationExistsError struct {
	Name string
}

func (e OrganizationExistsError) Error() string {
	return fmt.Sprintf("The organization name '%s' is already in use", e.Name)
}
