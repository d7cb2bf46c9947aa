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

// This package stores the content of uploaded dataset resources on disk,
// under the service's data directory. Each dataset gets its own folder, keyed
// by the dataset's id so renames don't orphan files.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/datahubio/dcs/config"
)

// Stores the given content as a file belonging to a dataset and returns the
// public URL at which it is served. The content is bounded by the configured
// fetch.max_bytes.
func Save(datasetId uuid.UUID, datasetName, filename string,
	content io.Reader) (string, error) {

	filename = filepath.Base(filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return "", &InvalidFilenameError{Name: filename}
	}

	dir := datasetDir(datasetId)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	out, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer out.Close()

	written, err := io.Copy(out, io.LimitReader(content, config.Fetch.MaxBytes+1))
	if err != nil {
		os.Remove(out.Name())
		return "", err
	}
	if written > config.Fetch.MaxBytes {
		os.Remove(out.Name())
		return "", &TooLargeError{Name: filename}
	}

	return ResourceUrl(datasetName, filename), nil
}

// removes all stored files belonging to the dataset with the given id (used
// when a dataset creation is rolled back)
func RemoveAll(datasetId uuid.UUID) error {
	return os.RemoveAll(datasetDir(datasetId))
}

// returns the path on disk at which a stored resource file lives
func LocalPath(datasetId uuid.UUID, filename string) string {
	return filepath.Join(datasetDir(datasetId), filepath.Base(filename))
}

// returns the public URL for a stored resource file (its basename is always
// the stored filename)
func ResourceUrl(datasetName, filename string) string {
	base := strings.TrimSuffix(config.Service.SiteURL, "/")
	return fmt.Sprintf("%s/dataset/%s/resource/%s", base, datasetName, filename)
}

func datasetDir(datasetId uuid.UUID) string {
	return filepath.Join(config.Service.DataDirectory, "resources",
		datasetId.String())
}
