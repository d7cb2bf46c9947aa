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

// This package fetches remote data package descriptors and bundled archives.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/StalkR/hsts"

	"github.com/datahubio/dcs/config"
)

// Here's a secure HTTP client for outbound fetches. It sets a reasonable
// timeout and enables HTTP Strict Transport Security (HSTS).
func SecureHttpClient(timeout time.Duration) http.Client {
	client := http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Scheme == "http" {
				return &DowngradedRedirectError{
					Endpoint: fmt.Sprintf("%s%s", req.URL.Host, req.URL.Path),
				}
			}
			return http.ErrUseLastResponse
		},
	}
	client.Transport = hsts.New(client.Transport) // enable HSTS
	return client
}

// Fetches the payload at the given URL, enforcing the configured size bound.
func Bytes(fetchUrl string) ([]byte, error) {
	client := SecureHttpClient(time.Duration(config.Fetch.Timeout) * time.Second)
	resp, err := client.Get(fetchUrl)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Url: fetchUrl, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, config.Fetch.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > config.Fetch.MaxBytes {
		return nil, &TooLargeError{Url: fetchUrl}
	}
	return data, nil
}
