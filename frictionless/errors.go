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
	"fmt"
)

// indicates that a descriptor could not be parsed or failed schema validation
type InvalidDescriptorError struct {
	Message string
}

func (e InvalidDescriptorError) Error() string {
	return fmt.Sprintf("Invalid data package descriptor: %s", e.Message)
}

// indicates that a resource path escapes its expected containment (e.g. an
// absolute filesystem path or a parent-directory traversal)
type UnsafePathError struct {
	Path string
}

func (e UnsafePathError) Error() string {
	return fmt.Sprintf("The resource path '%s' is unsafe", e.Path)
}

// indicates that a zip payload could not be read as an archive
type InvalidArchiveError struct {
	Message string
}

func (e InvalidArchiveError) Error() string {
	return fmt.Sprintf("Invalid data package archive: %s", e.Message)
}

// indicates that an archive contains no datapackage.json member
type NoDescriptorError struct {
}

func (e NoDescriptorError) Error() string {
	return "The archive contains no datapackage.json descriptor"
}

// indicates that a resource path refers to an archive member that doesn't
// exist
type MemberNotFoundError struct {
	Path string
}

func (e MemberNotFoundError) Error() string {
	return fmt.Sprintf("The archive has no member at path '%s'", e.Path)
}
