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
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"
)

// name of the descriptor member within a data package archive
const descriptorMember = "datapackage.json"

// leading bytes of a zip archive
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// returns true if the given payload is a zip archive
func IsArchive(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// A data package bundled as a zip archive. Resource paths within the
// descriptor resolve against the archive's members, relative to the
// directory holding datapackage.json.
type Archive struct {
	reader *zip.Reader
	// directory prefix under which datapackage.json was found ("" at root)
	prefix string
}

// opens a zip archive held in the given byte payload
func OpenArchive(data []byte) (*Archive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &InvalidArchiveError{Message: err.Error()}
	}
	return &Archive{reader: reader}, nil
}

// locates the archive's datapackage.json member (at the root or within a
// single enclosing directory) and returns its content
func (a *Archive) Descriptor() ([]byte, error) {
	for _, file := range a.reader.File {
		if file.Name == descriptorMember ||
			strings.HasSuffix(file.Name, "/"+descriptorMember) {
			a.prefix = strings.TrimSuffix(file.Name, descriptorMember)
			return a.readFile(file)
		}
	}
	return nil, &NoDescriptorError{}
}

// reads the archive member referred to by the given (descriptor-relative)
// resource path
func (a *Archive) ReadMember(memberPath string) ([]byte, error) {
	name := a.prefix + path.Clean(memberPath)
	for _, file := range a.reader.File {
		if file.Name == name {
			return a.readFile(file)
		}
	}
	return nil, &MemberNotFoundError{Path: memberPath}
}

func (a *Archive) readFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, &InvalidArchiveError{Message: err.Error()}
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &InvalidArchiveError{Message: err.Error()}
	}
	return data, nil
}
