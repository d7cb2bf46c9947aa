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

package auth

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"

	"github.com/fernet/fernet-go"

	"github.com/datahubio/dcs/config"
)

// This type accepts a valid access token in exchange for a user record. The
// token file is maintained by hand and encrypted with the service secret, so
// catalog users can be added without standing up an identity provider.
type Authenticator struct {
	UserForToken map[string]User
}

func ReadAccessTokenFile(tokenFilePath string) (map[string]User, error) {
	key, err := fernet.DecodeKey(config.Service.Secret)
	if err != nil {
		return nil, err
	}

	encryptedText, err := os.ReadFile(tokenFilePath)
	if err != nil {
		return nil, err
	}

	plainText := fernet.VerifyAndDecrypt(encryptedText, 0, []*fernet.Key{key})
	if plainText == nil {
		return nil, errors.New("Couldn't decrypt the access token file!")
	}

	// the plaintext content is a tab-delimited file with records like so:
	// Name\tEmail\tSysadmin\tToken
	reader := csv.NewReader(bytes.NewReader(plainText))
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = 4

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	userRecords := make(map[string]User)
	for _, record := range records {
		token := record[3]
		userRecords[token] = User{
			Name:     record[0],
			Email:    record[1],
			Sysadmin: record[2] == "true" || record[2] == "1",
		}
	}

	return userRecords, nil
}

func NewAuthenticator() (*Authenticator, error) {
	var a Authenticator
	var err error
	filePath := filepath.Join(config.Service.DataDirectory, "access.dat")
	a.UserForToken, err = ReadAccessTokenFile(filePath)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// given an access token, returns a User or an error
func (a *Authenticator) GetUser(accessToken string) (User, error) {
	if user, found := a.UserForToken[accessToken]; found {
		return user, nil
	} else {
		return User{}, errors.New("Invalid access token!")
	}
}
